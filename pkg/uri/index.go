// Package uri implements the compact node identifier format.
//
// An identifier is a five part tuple (scheme, namespace, path, ext, version).
// Its compact form joins the parts with configurable separator tokens and
// leaves out every part that equals its configured default, so with the
// default configuration all of these name the same node:
//
//	page/title
//	page/title.txt
//	en-us@page/title
//	i18n://en-us@page/title.txt
//
// Compact strings are not comparable as text; expand them with a Parser and
// compare the resulting Identifier values.
package uri
