// Package application assembles an HTTP application from a Config.
//
// Init runs a fixed sequence that callers cannot reorder:
//
//  1. the middleware pipeline: request context, security headers, JSON and
//     URL-encoded body parsing (100 MB ceiling), CORS origin admission, then
//     the caller's middleware in order;
//  2. the caller's routes, the optional docs route, then an unconditional
//     catch-all that answers 404 with an HTML, JSON or text body;
//  3. the server bind, over the secure transport when HTTPS is enabled;
//  4. the global error handler, which hands the error to the optional custom
//     handler and always answers 500 {"message":"Internal server error."}.
//
// Connections are accepted only after all four steps have completed.
//
// Minimal usage:
//
//	app, err := application.New(application.Config{
//		AppName: "todos",
//		Logger:  logrus.New(),
//		Routes: []application.Route{
//			{Path: "/todos", Method: application.MethodGet, Handler: listTodos},
//		},
//	})
//	if err != nil {
//		return err
//	}
//	if err := app.Init(); err != nil {
//		return err
//	}
//	return app.Wait()
package application
