package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/nlu"
)

func newClassifyCmd() *cobra.Command {
	var (
		criteriaOnly bool
		vehicle      nlu.Vehicle
	)

	cmd := &cobra.Command{
		Use:   "classify [message...]",
		Short: "Show how a message is classified",
		Long:  "Run only the intent classifier. No database is opened.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lex := nlu.DefaultLexicon()
			if cfg.Lexicon.Path != "" {
				var err error
				if lex, err = nlu.LoadLexicon(cfg.Lexicon.Path); err != nil {
					return err
				}
			}

			classifier := nlu.NewClassifier(lex)
			message := strings.Join(args, " ")

			intent := classifier.Classify(message)
			if search, ok := intent.(nlu.ProductSearch); ok {
				search.Criteria = vehicle.Apply(search.Criteria)
				intent = search
			}

			var view interface{} = describeIntent(intent)
			if criteriaOnly {
				view = vehicle.Apply(classifier.Criteria(message))
			}
			data, err := json.MarshalIndent(view, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&criteriaOnly, "criteria", false, "print search criteria even when the message is not a product search")
	addVehicleFlags(cmd, &vehicle)
	return cmd
}

func addVehicleFlags(cmd *cobra.Command, v *nlu.Vehicle) {
	cmd.Flags().StringVar(&v.Model, "model", "", "vehicle model to narrow product searches")
	cmd.Flags().StringVar(&v.Engine, "engine", "", "vehicle engine to narrow product searches")
	cmd.Flags().IntVar(&v.Year, "year", 0, "vehicle year to narrow product searches")
}

type intentView struct {
	Kind nlu.Kind   `json:"kind"`
	Args nlu.Intent `json:"args"`
}

func describeIntent(intent nlu.Intent) intentView {
	return intentView{Kind: intent.Kind(), Args: intent}
}
