// Package rent implements repeated elastic-net feature selection (RENT).
//
// RENT trains K elastic-net regularized linear models on randomized
// train/test splits of one dataset and keeps the features whose weights are
// stable across the ensemble. Stability is measured per feature by three
// criteria:
//   - tau_1: fraction of models with a non-zero weight
//   - tau_2: agreement of the weight signs, |Σ sign(w)| / K
//   - tau_3: Student-t CDF of the mean weight against zero
//
// # Basic Usage
//
//	r, err := rent.NewClassification(X, y,
//	    rent.WithC(0.1, 1, 10),
//	    rent.WithL1Ratios(0.1, 0.5, 0.9),
//	    rent.WithK(100),
//	    rent.WithRandomState(42),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := r.Train(); err != nil {
//	    log.Fatal(err)
//	}
//	selected, err := r.SelectFeatures(rent.DefaultTau1, rent.DefaultTau2, rent.DefaultTau3)
//
// # Hyperparameters
//
// With WithAutoEnetParSel(true) (the default) a cross-validated
// pre-selection picks one (C, l1_ratio) before the ensemble runs. Each
// fold refits an unpenalized model on the features the regularized model
// kept, and the cell maximizing the harmonic mean of normalized score and
// zero fraction wins. Otherwise the ensemble covers the whole grid and the
// same rule is applied to the ensemble averages.
//
// # Validation
//
// ValidationStudy compares the selection on held-out data against models on
// random feature subsets of equal size (VS1) and against permuted labels
// (VS2), with a one-sample t-test for each.
//
// # Determinism
//
// With a non-negative random state every split k draws from its own PCG
// stream keyed by (seed, k), so results do not depend on the number of
// workers or their scheduling.
package rent
