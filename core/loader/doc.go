// Package loader mounts HTTP features on the Fiber app.
//
// A Feature names itself, reports whether it is enabled and registers its
// routes in Load. The Manager keeps features in registration order; LoadAll
// skips disabled ones and stops at the first Load error.
//
//	mgr := loader.NewManager()
//	mgr.Register(sync.NewFeature(svc, logg))
//	if err := mgr.LoadAll(app); err != nil {
//	    return err
//	}
package loader
