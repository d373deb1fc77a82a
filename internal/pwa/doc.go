// Package pwa models the browser side of the PWA integration: registering the
// background worker, reusing or creating a push subscription, and posting
// manifest and navigation messages to the worker that controls the page.
//
// The script the server actually ships is web/static/js/entry.client.js. The
// types here are a reference model of that script and must follow it step for
// step: register, wait for ready, sync the manifest, reuse or create the
// subscription, POST it and treat a non-2xx answer as a failure. Messages
// waiting for a controller are posted on the first controllerchange, or
// dropped when the page is still uncontrolled at that point.
//
// The browser APIs are reached through small interfaces (WorkerContainer,
// Registration, PushManager) so the flows stay independent of any particular
// runtime. The wire types are shared with the server
// handlers for /resources/subscribe.
package pwa
