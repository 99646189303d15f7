// Package comparison answers the one question the service exists for: does
// the average salary of a nationality cover the cost of living in a state?
//
// A Dataset is built once at startup from three sources (salary per country,
// cost per state, and a per-state breakdown of cost categories) by running
// the dataprocessing loaders concurrently. The Service then serves read-only
// lookups against it.
//
// Usage:
//
//	ds, err := comparison.LoadDataset(ctx, cfg.Data, comparison.SettingsFrom(cfg.Data))
//	if err != nil {
//		return err
//	}
//	svc := comparison.NewService(ds, metrics, logger)
//	c, err := svc.Compare(ctx, "CA", "Germany")
//
// Lookups normalize keys the same way the loaders did, so "ca" and " CA "
// find the same state under the default upper-case normalizer.
package comparison
