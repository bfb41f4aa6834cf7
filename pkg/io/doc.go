// Package io reads and writes package graphs as JSON.
//
// The format has two arrays:
//
//	{
//	  "nodes": [
//	    {"id": "net8.0", "meta": {"kind": "target"}},
//	    {"id": "Contoso.Data/1.2.0", "meta": {"kind": "package", "version": "1.2.0"}}
//	  ],
//	  "edges": [
//	    {"from": "net8.0", "to": "Contoso.Data/1.2.0"}
//	  ]
//	}
//
// Node and edge order is preserved, so a graph written with [WriteJSON] and
// read back with [ReadJSON] renders identically.
package io
