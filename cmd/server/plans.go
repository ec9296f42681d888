package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mealplan-backend-go/configs"
	"mealplan-backend-go/internal/core"
)

func plansCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Print the plan catalog the server would offer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plans := core.DefaultPlans()
			if file != "" {
				pf, err := configs.LoadPlanFile(file)
				if err != nil {
					return err
				}
				plans = pf.Plans
			}
			out, err := yaml.Marshal(configs.PlanFile{Plans: plans})
			if err != nil {
				return fmt.Errorf("encode plans: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", os.Getenv("PLANS_FILE"), "plan catalog YAML file")
	return cmd
}
