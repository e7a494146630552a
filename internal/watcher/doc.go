// Package watcher tracks which directories are watched and delivers their
// filesystem events.
//
// A Notifier hands out an opaque Handle per registered directory and queues
// events per handle. Wait returns the next handle with pending events; the
// handle is then not returned again until Reset re-arms it. Reset reports
// false once the directory is gone, after which the caller discards the
// handle. This is the only contract the synchronizer relies on, so the
// fsnotify, polling and in-memory notifiers are interchangeable.
//
// Tree owns the handle to path mapping and registers whole subtrees, which
// is how directories created or moved in later become watched.
//
// Usage:
//
//	n, err := watcher.NewFsnotifyNotifier()
//	if err != nil {
//	    return err
//	}
//	defer n.Close()
//
//	tree := watcher.NewTree(n, exclude)
//	if _, err := tree.RegisterRoot("/srv/docs"); err != nil {
//	    return err
//	}
//
//	for {
//	    h, err := n.Wait(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    for _, ev := range n.Drain(h) {
//	        // Handle ev.Kind at ev.Path()
//	    }
//	    if !n.Reset(h) {
//	        tree.Discard(h)
//	    }
//	}
package watcher
