// Package dispatcher performs recorded operations on live objects.
//
// The history recorder only knows targets, member names and argument values.
// A Router turns those into real calls. It tries, in order:
//
//  1. The target itself, when it implements MethodCaller or PropertySetter.
//  2. Registered Handlers, in registration order, whose CanHandle accepts the
//     target (the Lua host registers one for script tables).
//  3. The fallback, by default Reflect, which calls exported Go methods and
//     assigns exported struct fields.
//
// Member names are matched in Go style: "set_text" resolves to SetText and
// "x" to X.
//
// Every call is timed and counted in the router's Metrics. Handler panics are
// recovered and reported as ErrPanic.
package dispatcher
