// Command score scores a landmark file offline, without the API or a database.
//
//	score -profile basic -in face.json
//
// The input holds the landmarks in pixels and the photo metrics:
//
//	{"topology":"face_mesh_478","landmarks":[{"x":512,"y":300},...],
//	 "quality":{"sharpness":150,"brightness":128,"contrast":45}}
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/feature"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/landmark"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/quality"
	"github.com/saturnino-fabrica-de-software/faceratio/internal/scoring"
)

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type input struct {
	Topology  string          `json:"topology"`
	Landmarks []point         `json:"landmarks"`
	Quality   quality.Metrics `json:"quality"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, landmark.ErrContract) || errors.Is(err, feature.ErrDegenerateGeometry) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	profileName := fs.String("profile", string(scoring.ProfileExtended), "Scoring profile: basic or extended")
	path := fs.String("in", "-", "Landmark file, - for stdin")
	withLandmarks := fs.Bool("landmarks", false, "Echo the landmarks in the output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	profile, err := scoring.ParseProfile(*profileName)
	if err != nil {
		return err
	}

	r := stdin
	if *path != "-" {
		f, err := os.Open(*path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var in input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	mesh, err := in.mesh()
	if err != nil {
		return err
	}

	var opts []scoring.AnalyzeOption
	if *withLandmarks {
		opts = append(opts, scoring.WithLandmarks())
	}

	res, err := scoring.MustEngine(profile).Analyze(mesh, in.Quality, opts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func (in input) mesh() (landmark.Mesh, error) {
	var (
		topo landmark.Topology
		err  error
	)
	if in.Topology != "" {
		topo, err = landmark.ParseTopology(in.Topology)
		if err != nil {
			return landmark.Mesh{}, err
		}
	} else {
		var ok bool
		if topo, ok = landmark.ForSize(len(in.Landmarks)); !ok {
			return landmark.Mesh{}, fmt.Errorf("%w: no topology has %d landmarks", landmark.ErrContract, len(in.Landmarks))
		}
	}

	coords := make([][2]float64, len(in.Landmarks))
	for i, p := range in.Landmarks {
		coords[i] = [2]float64{p.X, p.Y}
	}
	return landmark.Mesh{Topology: topo, Points: landmark.FromXY(coords)}, nil
}
