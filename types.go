package cmsclient

// User is an employee account.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Task is one tracked work item assigned to an employee.
type Task struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate,omitempty"`
}

// AttendanceRecord is one punch event.
type AttendanceRecord struct {
	Direction string `json:"direction"`
	Time      string `json:"time"`
}

// DashboardSummary aggregates the landing-page counters.
type DashboardSummary struct {
	Employees int `json:"employees"`
	Tasks     int `json:"tasks"`
	Punches   int `json:"punches"`
}

// loginData is the data member of the login response envelope.
type loginData struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
