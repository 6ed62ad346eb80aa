// Package cmsclient is the Go client for the CMS HR/attendance backend.
//
// The root [Client] composes four layers over one obfuscated local store:
//
//   - [github.com/manas-swain-001/cms-client/pkg/store]: persisted
//     session, auth and notification state.
//   - [github.com/manas-swain-001/cms-client/pkg/request]: the HTTP wrapper
//     with retry, bearer injection and uniform error normalization.
//   - [github.com/manas-swain-001/cms-client/pkg/realtime]: the websocket
//     channel delivering push notifications, with bounded reconnection.
//   - [github.com/manas-swain-001/cms-client/pkg/notify]: the synchronizer
//     merging realtime events into a bounded, deduplicated, persisted list.
//
// Typical use:
//
//	cfg, _ := cmsclient.LoadConfig()
//	c, err := cmsclient.New(cfg)
//	if err != nil { ... }
//	user, err := c.Login(ctx, email, password)
//	c.Notifications().Start()
//
// HTTP failures surface as [pkg/request.APIError] whether they came from an
// HTTP status or the backend's success:false envelope; a pure network
// failure propagates as the transport's own error. A 401 clears the local
// session as a side effect.
package cmsclient
