// Package invoke defines the named command invocation primitive that connects
// dbscope clients to a backend.
//
// An Invoker sends a command name plus a JSON-encodable argument bag and
// decodes the JSON result. Router is the backend side: a registry of named
// handlers. Local wires the two together in-process, while the rpc and
// httpapi packages carry the same calls across process boundaries.
package invoke
