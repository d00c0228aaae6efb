package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"goprior/adapters/postgres"
	"goprior/adapters/rng"
	"goprior/adapters/sampler"
	"goprior/app"
	"goprior/domain/core"
	"goprior/domain/mixture"
	"goprior/domain/trial"
	"goprior/internal/config"
	"goprior/internal/design"
	apperrors "goprior/internal/errors"
	"goprior/internal/ess"
	"goprior/internal/fitting"
	"goprior/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	// Missing .env is fine, the environment may be set directly.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "priorctl",
		Short: "Derive, robustify and evaluate meta-analytic-predictive priors",
	}

	rootCmd.AddCommand(
		newMapCmd(),
		newESSCmd(),
		newRobustifyCmd(),
		newOCCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", apperrors.GetCode(err), err)
		os.Exit(1)
	}
}

// wiring builds the adapters shared by the commands
type wiring struct {
	cfg   *config.Config
	store ports.PriorStore
	db    *sqlx.DB
}

func wire(ctx context.Context) (*wiring, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	w := &wiring{cfg: cfg}
	if cfg.Database.URL != "" {
		db, err := sqlx.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to open prior store")
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, err
		}
		w.db = db
		w.store = postgres.NewPriorRepository(db)
	}
	return w, nil
}

func (w *wiring) close() {
	if w.db != nil {
		w.db.Close()
	}
}

func (w *wiring) mapService() *app.MAPService {
	return app.NewMAPService(
		sampler.NewClient(w.cfg.Sampler.URL, w.cfg.Sampler.Timeout),
		rng.NewSeeded(),
		w.store,
		app.SamplingDefaults{
			Chains:     w.cfg.Sampler.Chains,
			Iterations: w.cfg.Sampler.Iterations,
			Warmup:     w.cfg.Sampler.Warmup,
		},
		fitting.Options{
			MaxIter: w.cfg.Fit.MaxIterations,
			Tol:     w.cfg.Fit.Tolerance,
			KMax:    w.cfg.Fit.MaxComponents,
		},
	)
}

func newMapCmd() *cobra.Command {
	var (
		seed          int64
		saveAs        string
		refScale      float64
		tau           float64
		interceptMean float64
		interceptSD   float64
	)

	cmd := &cobra.Command{
		Use:   "map [data.json]",
		Short: "Derive a MAP prior from historical trial data",
		Long: `Run the hierarchical meta-analysis on the configured sampling engine and
fit a parametric mixture prior to the predictive draws.

The data file holds the endpoint and one row per historical study:

  {"endpoint": "binomial", "rows": [{"study": "trial-a", "n": 100, "events": 23}]}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data trial.HistoricalData
			if err := readJSONFile(args[0], &data); err != nil {
				return err
			}

			w, err := wire(cmd.Context())
			if err != nil {
				return err
			}
			defer w.close()

			res, err := w.mapService().Derive(cmd.Context(), app.MAPRequest{
				Data:            data,
				InterceptPrior:  ports.PriorSpec{Mean: interceptMean, SD: interceptSD},
				HeterogeneitySD: tau,
				RefScale:        refScale,
				Seed:            seed,
				SaveAs:          saveAs,
			})
			if err != nil {
				return err
			}

			for _, warning := range res.Warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
			}
			return printJSON(map[string]any{
				"analysis_id": res.AnalysisID,
				"prior":       res.Prior.Record(),
				"components":  res.Selection.Best.Components,
				"aic":         res.Selection.Best.AIC,
				"fingerprint": res.Fingerprint,
				"diagnostics": res.Diagnostics,
				"stored_id":   res.StoredID,
				"runtime_ms":  res.RuntimeMs,
			})
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 1, "Base seed for the sampler and mixture fit")
	cmd.Flags().StringVar(&saveAs, "save-as", "", "Persist the derived prior under this name")
	cmd.Flags().Float64Var(&refScale, "ref-scale", 0, "Reference sampling sd (gaussian endpoint)")
	cmd.Flags().Float64Var(&tau, "tau", 1, "Half-normal scale of the heterogeneity prior")
	cmd.Flags().Float64Var(&interceptMean, "intercept-mean", 0, "Mean of the intercept prior")
	cmd.Flags().Float64Var(&interceptSD, "intercept-sd", 2, "SD of the intercept prior")

	return cmd
}

func newESSCmd() *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "ess [prior.json]",
		Short: "Compute the effective sample size of a mixture prior",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wire(cmd.Context())
			if err != nil {
				return err
			}
			defer w.close()

			ref, err := priorRefFromArg(args[0])
			if err != nil {
				return err
			}
			if method == "" {
				method = w.cfg.ESS.Method
			}
			value, err := app.NewDesignService(w.store).ESS(cmd.Context(), ref, ess.Method(method))
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"method": method, "ess": value})
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "ESS convention: moment, morita or elir")
	return cmd
}

func newRobustifyCmd() *cobra.Command {
	var (
		weight   float64
		location float64
		pseudoN  float64
		method   string
		saveAs   string
	)

	cmd := &cobra.Command{
		Use:   "robustify [prior.json]",
		Short: "Mix a vague component into a prior and report the ESS change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := wire(cmd.Context())
			if err != nil {
				return err
			}
			defer w.close()

			ref, err := priorRefFromArg(args[0])
			if err != nil {
				return err
			}
			if method == "" {
				method = w.cfg.ESS.Method
			}
			res, err := app.NewDesignService(w.store).Robustify(cmd.Context(), app.RobustifyRequest{
				Prior:    ref,
				Weight:   weight,
				Location: location,
				PseudoN:  pseudoN,
				SaveAs:   saveAs,
			}, ess.Method(method))
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"prior":      res.Prior.Record(),
				"ess_before": res.ESSBefore,
				"ess_after":  res.ESSAfter,
				"stored_id":  res.StoredID,
			})
		},
	}

	cmd.Flags().Float64Var(&weight, "weight", 0.2, "Weight of the vague component")
	cmd.Flags().Float64Var(&location, "location", 0.5, "Location of the vague component")
	cmd.Flags().Float64Var(&pseudoN, "pseudo-n", 1, "Pseudo observations behind the vague component")
	cmd.Flags().StringVar(&method, "method", "", "ESS convention: moment, morita or elir")
	cmd.Flags().StringVar(&saveAs, "save-as", "", "Persist the robustified prior under this name")
	return cmd
}

// ocSpec is the on-disk form of an operating-characteristics request
type ocSpec struct {
	Prior1    mixture.Record     `json:"prior1"`
	Prior2    mixture.Record     `json:"prior2"`
	N1        int                `json:"n1"`
	N2        int                `json:"n2"`
	Model     design.Model       `json:"model"`
	LowerTail bool               `json:"lower_tail"`
	Criteria  []design.Criterion `json:"criteria"`
	Theta1    []float64          `json:"theta1"`
	Theta2    []float64          `json:"theta2"`
}

func newOCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oc [design.json]",
		Short: "Evaluate the operating characteristics of a two-arm design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec ocSpec
			if err := readJSONFile(args[0], &spec); err != nil {
				return err
			}

			res, err := app.NewDesignService(nil).OperatingCharacteristics(cmd.Context(), app.OCRequest{
				Prior1:    app.PriorRef{Record: &spec.Prior1},
				Prior2:    app.PriorRef{Record: &spec.Prior2},
				N1:        spec.N1,
				N2:        spec.N2,
				Model:     spec.Model,
				LowerTail: spec.LowerTail,
				Criteria:  spec.Criteria,
				Theta1:    spec.Theta1,
				Theta2:    spec.Theta2,
			})
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"theta1":     spec.Theta1,
				"theta2":     spec.Theta2,
				"grid":       res.Grid,
				"runtime_ms": res.RuntimeMs,
			})
		},
	}
	return cmd
}

// priorRefFromArg treats the argument as a JSON file path when it exists and
// as a stored prior id otherwise.
func priorRefFromArg(arg string) (app.PriorRef, error) {
	if _, err := os.Stat(arg); err == nil {
		var rec mixture.Record
		if err := readJSONFile(arg, &rec); err != nil {
			return app.PriorRef{}, err
		}
		return app.PriorRef{Record: &rec}, nil
	}
	return app.PriorRef{ID: core.PriorID(arg)}, nil
}

func readJSONFile(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
