// Package websearch implements the web search tier of the solve pipeline.
//
// A "math-search" MCP server exposes Tavily backed tools. The Adapter is an
// MCP client for that server, connected either in-process over in-memory
// transports or to a remote server over streamable HTTP. The adapter never
// surfaces an error: any failure degrades to an empty result.
package websearch
