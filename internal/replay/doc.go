// Package replay provides the event source the observer bridge subscribes
// to.
//
// A Feed reads newline-delimited JSON, one event per line:
//
//	{"type":"elimination","time_ms":81234,"player":"storm","data":{"weapon":"pump"}}
//	{"type":"storm_phase","time_ms":90000,"data":{"phase":2}}
//
// and pushes it through the observer protocol: OnStart, OnNext per event,
// then OnCompleted at end of input. A malformed line, a read error or a
// cancelled context ends the run with OnError instead.
//
// Usage:
//
//	feed := replay.NewFeed(file).Filter("elimination")
//	if err := bridge.Subscribe(feed); err != nil {
//	    return err
//	}
//	return feed.Run(ctx)
package replay
