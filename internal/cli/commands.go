package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/credencelabs/credence/internal/model"
	"github.com/credencelabs/credence/internal/pack"
)

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

var loadCmd = &cobra.Command{
	Use:   "load <pack-file>",
	Short: "Load a domain pack (concepts, edges, bundles)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read pack: %w", err)
		}
		doc, err := pack.Parse(data)
		if err != nil {
			return err
		}

		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := eng.LoadPack(doc)
		if err != nil {
			return err
		}
		printJSON(result)
		if len(result.Errors) > 0 {
			return fmt.Errorf("pack rejected with %d error(s)", len(result.Errors))
		}
		return nil
	},
}

var (
	verifyModality string
	verifyResult   string
	verifyContext  string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <person> <concept>",
	Short: "Record a verification outcome and recompute trust",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		state, explanation, err := eng.RecordVerification(&model.VerificationEvent{
			PersonID:  args[0],
			ConceptID: args[1],
			Modality:  model.Modality(verifyModality),
			Result:    model.Result(verifyResult),
			Context:   verifyContext,
		})
		if err != nil {
			return err
		}
		printJSON(map[string]any{"trust": state, "explanation": explanation})
		return nil
	},
}

var claimContext string

var claimCmd = &cobra.Command{
	Use:   "claim <person> <concept> <confidence>",
	Short: "Record a self-reported confidence claim",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var confidence float64
		if _, err := fmt.Sscanf(args[2], "%f", &confidence); err != nil {
			return fmt.Errorf("parse confidence %q: %w", args[2], err)
		}

		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		gap, err := eng.RecordClaim(&model.ClaimEvent{
			PersonID:   args[0],
			ConceptID:  args[1],
			Confidence: confidence,
			Context:    claimContext,
		})
		if err != nil {
			return err
		}
		printJSON(map[string]any{"calibration_gap": gap})
		return nil
	},
}

var (
	retractReason string
	retractActor  string
)

var retractCmd = &cobra.Command{
	Use:   "retract <event-id>",
	Short: "Retract an event, keeping its audit trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := eng.Retract(args[0], model.RetractionReason(retractReason), retractActor)
		if err != nil {
			return err
		}
		printJSON(result)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <person> [concept]",
	Short: "Show decayed trust for a person, or one concept",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		now := time.Now().UnixMilli()
		if len(args) == 2 {
			state, err := eng.Trust(args[0], args[1], now)
			if err != nil {
				return err
			}
			printJSON(map[string]any{
				"trust":       state,
				"explanation": eng.ExplainTrustRead(state, now),
			})
			return nil
		}

		states, err := eng.TrustOverview(args[0], now)
		if err != nil {
			return err
		}
		printJSON(states)
		return nil
	},
}

var decayCmd = &cobra.Command{
	Use:   "decay <person>",
	Short: "Show which of a person's concepts have gone stale",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		report, err := eng.DecayReport(args[0], time.Now().UnixMilli())
		if err != nil {
			return err
		}
		printJSON(report)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <person>",
	Short: "Calibration and staleness report for a person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, eng, err := openEngine()
		if err != nil {
			return err
		}
		defer db.Close()

		now := time.Now().UnixMilli()
		calibration, err := eng.Calibration(args[0], now)
		if err != nil {
			return err
		}
		decayed, err := eng.DecayReport(args[0], now)
		if err != nil {
			return err
		}
		printJSON(map[string]any{
			"calibration": calibration,
			"explanation": eng.ExplainCalibration(calibration),
			"decayed":     decayed,
		})
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyModality, "modality", "m", string(model.ModalityObserved), "evidence channel (e.g. external:observed, external:recall, external:application)")
	verifyCmd.Flags().StringVarP(&verifyResult, "result", "r", string(model.ResultDemonstrated), "outcome: demonstrated, failed, or partial")
	verifyCmd.Flags().StringVarP(&verifyContext, "context", "c", "", "free-text context for the event")

	claimCmd.Flags().StringVarP(&claimContext, "context", "c", "", "free-text context for the claim")

	retractCmd.Flags().StringVar(&retractReason, "reason", "", "reason: fraudulent, duplicate, identity_mixup, consent_erasure, data_correction")
	retractCmd.Flags().StringVar(&retractActor, "by", "", "who is retracting")
	retractCmd.MarkFlagRequired("reason")
}
