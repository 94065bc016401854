package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/credencelabs/credence/internal/config"
	"github.com/credencelabs/credence/internal/engine"
	"github.com/credencelabs/credence/internal/model"
	"github.com/credencelabs/credence/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "credence",
	Short: "Evidence-derived trust in demonstrated understanding",
	Long: "Credence tracks, per person and concept, whether understanding has\n" +
		"actually been demonstrated rather than merely claimed. Verification\n" +
		"events, time decay, graph propagation, and retraction with a full\n" +
		"audit trail.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.credence/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(retractCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(decayCmd)
	rootCmd.AddCommand(reportCmd)
}

// openEngine loads config, opens the store, and builds the engine.
// Callers must Close the returned DB.
func openEngine() (*store.DB, *engine.Engine, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	return db, engine.New(db, engineParams(cfg.Scoring)), nil
}

// engineParams overlays configured scoring constants on the engine defaults.
// Zero config values keep the defaults.
func engineParams(sc config.ScoringConfig) engine.Params {
	p := engine.DefaultParams()

	if len(sc.ModalityStrengths) > 0 {
		strengths := make(map[model.Modality]float64, len(sc.ModalityStrengths))
		for m, s := range sc.ModalityStrengths {
			strengths[model.Modality(m)] = s
		}
		p.ModalityStrengths = strengths
	}
	if sc.CrossModalityBonus > 0 {
		p.CrossModalityConfidenceBonus = sc.CrossModalityBonus
	}
	if sc.PartialCreditBonus > 0 {
		p.PartialCreditBonus = sc.PartialCreditBonus
	}
	if sc.BaseHalfLifeDays > 0 {
		p.BaseHalfLifeDays = sc.BaseHalfLifeDays
	}
	if sc.CrossModalityMultiplier > 0 {
		p.CrossModalityMultiplier = sc.CrossModalityMultiplier
	}
	if sc.StructuralBonus > 0 {
		p.StructuralBonus = sc.StructuralBonus
	}
	if sc.PropagationAttenuation > 0 {
		p.PropagationAttenuation = sc.PropagationAttenuation
	}
	if sc.FailurePropagationMultiplier > 0 {
		p.FailurePropagationMultiplier = sc.FailurePropagationMultiplier
	}
	if sc.PropagationThreshold > 0 {
		p.PropagationThreshold = sc.PropagationThreshold
	}
	if sc.StalenessWindowDays > 0 {
		p.StalenessWindowDays = sc.StalenessWindowDays
	}
	return p
}
