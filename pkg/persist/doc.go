// Package persist mirrors an overlay stack into external storage.
//
// A Binding supplies the Data and OnChange functions of
// overlay.ProviderProps. It keeps the current entries in memory and writes
// every change to a Store in the background, latest value first:
//
//	store := persist.NewRedisStore(redis.NewClient(opts), "stackkit:", time.Hour)
//	b, err := persist.Bind(ctx, store, sessionID, logger)
//	stack := api.StackProvider(owner, overlay.ProviderProps{
//	    Data:     b.Data,
//	    OnChange: b.OnChange,
//	})
//	defer b.Close(ctx)
//
// QueryCodec stores a stack in a single URL query parameter instead.
package persist
