// Package httpserver serves GET / as an on-demand flavor check.
//
// A successful run answers 200 with {"flavors": [...], "date": "2006-01-02"|null, "found": bool}.
// A failed run answers 500 and any other method or path answers 405, both with an empty body.
package httpserver
