// Package djedi is a client for djedi CMS content nodes.
//
// A Client answers node lookups from an in-memory store and loads missing
// nodes from the CMS node API. Lookups made through GetBatched within one
// batch window are coalesced into a single request per language, and the
// response is fanned back out to every caller.
//
//	client, err := djedi.New(djedi.WithOptions(djedi.Options{
//		BaseURL:       "https://cms.example.com/djedi/api",
//		BatchInterval: 10,
//		Language:      "en-us",
//		URI:           uri.DefaultConfig(),
//	}))
//	if err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//
//	client.GetBatched(djedi.Request{URI: "page/title"}, func(node djedi.Node) {
//		// node.Value is nil when the node is missing and no default was given
//	})
//
// Callbacks are never passed an error. Failed fetches are logged and every
// caller gets the default it supplied.
package djedi
