package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"tour-routing-service/internal/adapters/distance"
	"tour-routing-service/internal/adapters/repositories"
	"tour-routing-service/internal/api/dto"
	"tour-routing-service/internal/services"

	"github.com/spf13/cobra"
)

// errInfeasible makes the process exit non-zero after the result is printed.
var errInfeasible = errors.New("plan is infeasible")

func newPlanCmd(opts *options) *cobra.Command {
	var (
		tourFile  string
		hostsFile string
		workers   int
	)

	c := &cobra.Command{
		Use:   "plan",
		Short: "Filter a host pool and build an itinerary offline with great-circle distances",
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := opts.policy()
			if err != nil {
				return err
			}

			var body dto.TourRequest
			if err := readJSON(tourFile, &body); err != nil {
				return err
			}
			req, err := body.ToDomain()
			if err != nil {
				return err
			}
			if err := req.Validate(); err != nil {
				return err
			}
			req = req.WithDefaults(policy)

			pool, err := repositories.LoadHostsJSON(hostsFile)
			if err != nil {
				return err
			}

			filtered := services.EligibilityFilter{Policy: policy}.Filter(req, pool)
			optimizer := services.ItineraryOptimizer{
				Provider:        distance.NewHaversineProvider(),
				Policy:          policy,
				Concurrency:     workers,
				EstimateTimeout: 5 * time.Second,
				Logger:          opts.logger(),
			}
			plan, err := optimizer.Plan(cmd.Context(), req, filtered.Eligible)
			if err != nil {
				return err
			}

			res := dto.FromPlan(plan)
			res.Exclusions = make([]dto.ExclusionResponse, 0, len(filtered.Exclusions))
			for _, ex := range filtered.Exclusions {
				res.Exclusions = append(res.Exclusions, dto.ExclusionResponse{HostID: ex.HostID, Reason: string(ex.Reason)})
			}
			if err := writeJSON(opts, res); err != nil {
				return err
			}
			if !plan.Feasible {
				return errInfeasible
			}
			return nil
		},
	}
	c.Flags().StringVar(&tourFile, "tour", "", "tour request JSON, as accepted by POST /tours")
	c.Flags().StringVar(&hostsFile, "hosts", "data/seeds/hosts.json", "host pool JSON")
	c.Flags().IntVar(&workers, "workers", 4, "concurrent distance estimates")
	_ = c.MarkFlagRequired("tour")
	return c
}

func newCheckCmd(opts *options) *cobra.Command {
	var planFile string

	c := &cobra.Command{
		Use:   "check",
		Short: "Re-validate a plan document against its own constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			var body dto.PlanResponse
			if err := readJSON(planFile, &body); err != nil {
				return err
			}
			plan, err := body.ToDomain()
			if err != nil {
				return err
			}

			ok, violations := services.FeasibilityChecker{}.Check(plan)
			if err := writeJSON(opts, dto.CheckPlanResponse{Feasible: ok, Violations: dto.FromViolations(violations)}); err != nil {
				return err
			}
			if !ok {
				return errInfeasible
			}
			return nil
		},
	}
	c.Flags().StringVar(&planFile, "plan", "", "plan JSON, as returned by GET /tours/{id}/plan")
	_ = c.MarkFlagRequired("plan")
	return c
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(opts *options, v any) error {
	enc := json.NewEncoder(opts.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
