package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/cyclone-watch/internal/domain"
	"github.com/couchcryptid/cyclone-watch/internal/registry"
	"github.com/spf13/cobra"
)

const (
	defaultLat = 17.6868
	defaultLon = 83.2185
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cyclonectl",
		Short:         "Operator tools for the cyclone watch service",
		Long:          `Classify pressure readings, query the generated shelter registry and manage model artifacts without running the service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newClassifyCmd(), newNearestCmd(), newSheltersCmd(), newModelCmd())
	return root
}

func newClassifyCmd() *cobra.Command {
	var (
		pressure  float64
		lat, lon  float64
		modelPath string
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a barometric pressure reading",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			classifier := domain.NewClassifier(modelPath, logger, nil)

			tier, err := classifier.Classify(cmd.Context(), domain.PressureReading{
				Latitude:    lat,
				Longitude:   lon,
				PressureHPa: pressure,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%g\t%s\t%s\n", pressure, tier, classifier.Name())
			return nil
		},
	}
	cmd.Flags().Float64VarP(&pressure, "pressure", "p", 0, "Pressure in hPa")
	cmd.Flags().Float64Var(&lat, "lat", defaultLat, "Reading latitude (used by model artifacts)")
	cmd.Flags().Float64Var(&lon, "lon", defaultLon, "Reading longitude (used by model artifacts)")
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Model artifact path; empty uses the threshold table")
	_ = cmd.MarkFlagRequired("pressure")
	return cmd
}

type registryFlags struct {
	satellites int
	radiusKm   float64
	seed       uint64
}

func (f *registryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.satellites, "satellites", 5, "Satellite shelters generated per hub")
	cmd.Flags().Float64Var(&f.radiusKm, "scatter-km", 2, "Maximum satellite distance from its hub in km")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Registry seed; 0 uses the current time")
}

func (f *registryFlags) generate() (*registry.Registry, error) {
	return registry.Generate(registry.BuildOptions{
		Hubs:       registry.VizagHubs,
		Satellites: f.satellites,
		RadiusKm:   f.radiusKm,
		Seed:       f.seed,
	}, time.Now())
}

func newNearestCmd() *cobra.Command {
	var (
		lat, lon float64
		limit    int
		reg      registryFlags
	)
	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "List the shelters nearest to a point",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := reg.generate()
			if err != nil {
				return err
			}
			ranked, err := r.Nearest(domain.Coordinate{Latitude: lat, Longitude: lon}, limit)
			if err != nil {
				return err
			}
			writeProximity(cmd.OutOrStdout(), ranked)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", defaultLat, "Origin latitude")
	cmd.Flags().Float64Var(&lon, "lon", defaultLon, "Origin longitude")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum shelters to list; 0 lists all")
	reg.register(cmd)
	return cmd
}

func newSheltersCmd() *cobra.Command {
	var (
		lat, lon, radius float64
		reg              registryFlags
	)
	cmd := &cobra.Command{
		Use:   "shelters",
		Short: "List the shelters within a radius of a point",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := reg.generate()
			if err != nil {
				return err
			}
			found, err := r.Within(domain.Coordinate{Latitude: lat, Longitude: lon}, radius)
			if err != nil {
				return err
			}
			writeProximity(cmd.OutOrStdout(), found)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", defaultLat, "Origin latitude")
	cmd.Flags().Float64Var(&lon, "lon", defaultLon, "Origin longitude")
	cmd.Flags().Float64VarP(&radius, "radius", "r", 5, "Search radius in km")
	reg.register(cmd)
	return cmd
}

func writeProximity(w io.Writer, ranked domain.ProximityResult) {
	for i, p := range ranked {
		fmt.Fprintf(w, "%d\t%s\t%.6f\t%.6f\t%.3f\n",
			i+1, p.Shelter.Name, p.Shelter.Latitude, p.Shelter.Longitude, p.DistanceKm)
	}
}

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage classifier model artifacts",
	}

	var out string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a model artifact equivalent to the threshold table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := json.MarshalIndent(domain.ThresholdModel(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode model: %w", err)
			}
			if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
				return fmt.Errorf("write model: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&out, "out", "o", "model.json", "Output path")

	var path string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a model artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := domain.LoadModel(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tok\n", m.Name())
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&path, "file", "f", "model.json", "Model artifact path")

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
