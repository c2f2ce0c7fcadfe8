package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-localize/agent"
	"github.com/nvr-ai/go-localize/common"
	"github.com/nvr-ai/go-localize/images"
	"github.com/nvr-ai/go-localize/localizer"
	"github.com/nvr-ai/go-localize/metrics"
	"github.com/nvr-ai/go-localize/search"
	"github.com/nvr-ai/go-localize/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		imageID string
		truths  []string
		random  bool
		steps   int
		epsilon float64
		seed    uint64
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one box search episode over an image",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("random") {
				a.cfg.RandomStart = random
			}
			if cmd.Flags().Changed("steps") {
				a.cfg.MaxSteps = steps
			}
			if cmd.Flags().Changed("epsilon") {
				a.cfg.Epsilon = epsilon
			}
			if cmd.Flags().Changed("seed") {
				a.cfg.Seed = seed
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			size, err := images.LoadSize(a.cfg.ImageDir, imageID)
			if err != nil {
				return err
			}

			rng := a.rng()
			var opts []search.Option
			if a.cfg.RandomStart {
				opts = append(opts, search.WithRandomStart(rng))
			}
			state, err := search.NewState(imageID, size, opts...)
			if err != nil {
				return err
			}

			est := agent.RandomSearch(rng)
			if len(truths) > 0 {
				oracle := agent.SearchOracle{Threshold: a.cfg.AcceptThreshold}
				for _, t := range truths {
					b, err := parseBox(t)
					if err != nil {
						return err
					}
					oracle.Truth = append(oracle.Truth, b)
				}
				est = oracle
			}

			runner := agent.NewRunner(agent.EpsilonGreedy{Epsilon: a.cfg.Epsilon, Rand: rng}, a.cfg.MaxSteps, a.logger)
			ep, err := runner.Search(cmd.Context(), state, est)
			if err != nil {
				return err
			}
			return writeYAML(cmd, ep)
		},
	}

	cmd.Flags().StringVar(&imageID, "image", "", "Image identifier (file name without extension)")
	cmd.Flags().StringArrayVar(&truths, "truth", nil, "Ground-truth box x1,y1,x2,y2; enables the oracle estimator (repeatable)")
	cmd.Flags().BoolVar(&random, "random", false, "Start from a random box")
	cmd.Flags().IntVar(&steps, "steps", 0, "Episode length")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0, "Exploration rate")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 picks one)")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

// refineResult is the outcome of one refined proposal.
type refineResult struct {
	Image        string     `yaml:"image"`
	Line         int        `yaml:"line"`
	Initial      common.Box `yaml:"initial"`
	Final        common.Box `yaml:"final"`
	Status       string     `yaml:"status"`
	Score        float64    `yaml:"score"`
	Steps        int        `yaml:"steps"`
	InitialIoU   float64    `yaml:"initial_iou"`
	FinalIoU     float64    `yaml:"final_iou"`
	EpisodeID    string     `yaml:"episode_id"`
	ActionsTaken []string   `yaml:"actions"`
}

func newRefineCmd(a *app) *cobra.Command {
	var boxesPath, truthPath string

	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Refine region proposals against ground-truth boxes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			proposals, err := util.LoadBoxFile(boxesPath)
			if err != nil {
				return err
			}
			truthGroups, err := util.LoadBoxFile(truthPath)
			if err != nil {
				return err
			}
			truth := make(map[string]common.Box, len(truthGroups))
			for _, g := range truthGroups {
				truth[g.Image] = g.Proposals[0].Box
			}

			runner := agent.NewRunner(agent.Greedy{}, a.cfg.MaxSteps, a.logger)
			var (
				results []refineResult
				ious    [][]float64
			)
			for _, g := range proposals {
				gt, ok := truth[g.Image]
				if !ok {
					a.logger.Warn("no ground truth, skipping image", "image", g.Image)
					continue
				}
				size, err := images.LoadSize(a.cfg.ImageDir, g.Image)
				if err != nil {
					return err
				}

				oracle := agent.RefineOracle{Truth: gt, Threshold: a.cfg.AcceptThreshold}
				for _, p := range g.Proposals {
					l, err := localizer.New(size, p.Box)
					if errors.Is(err, localizer.ErrInvalidBox) {
						a.logger.Warn("skipping proposal", "image", g.Image, "line", p.Line, "error", err)
						continue
					}
					if err != nil {
						return errors.Wrapf(err, "%s line %d", g.Image, p.Line)
					}
					ep, err := runner.Refine(cmd.Context(), l, oracle)
					if err != nil {
						return errors.Wrapf(err, "%s line %d", g.Image, p.Line)
					}

					res := refineResult{
						Image:      g.Image,
						Line:       p.Line,
						Initial:    p.Box,
						Final:      ep.Final,
						Status:     ep.Status,
						Score:      ep.Score,
						Steps:      len(ep.Steps),
						InitialIoU: float64(p.Box.IoU(gt)),
						FinalIoU:   float64(ep.Final.IoU(gt)),
						EpisodeID:  ep.ID.String(),
					}
					for _, st := range ep.Steps {
						res.ActionsTaken = append(res.ActionsTaken, st.Name)
					}
					results = append(results, res)
					ious = append(ious, []float64{res.InitialIoU, res.FinalIoU})
				}
			}

			out := struct {
				Results []refineResult   `yaml:"results"`
				Summary *metrics.Summary `yaml:"summary,omitempty"`
			}{Results: results}
			if len(ious) > 0 {
				summary, err := metrics.Summarize(ious)
				if err != nil {
					return err
				}
				out.Summary = &summary
			}
			return writeYAML(cmd, out)
		},
	}

	cmd.Flags().StringVar(&boxesPath, "boxes", "", "Proposal file, lines of <image> x1 y1 x2 y2 (1-based)")
	cmd.Flags().StringVar(&truthPath, "truth", "", "Ground-truth file in the same format, first box per image")
	_ = cmd.MarkFlagRequired("boxes")
	_ = cmd.MarkFlagRequired("truth")
	return cmd
}

func newRegionsCmd(a *app) *cobra.Command {
	var boxesPath, outDir string

	cmd := &cobra.Command{
		Use:   "regions",
		Short: "Crop context-padded proposal regions for an external feature extractor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := util.LoadBoxFile(boxesPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return errors.Wrap(err, "create output directory")
			}

			written := 0
			for _, g := range groups {
				img, err := images.Load(a.cfg.ImageDir, g.Image)
				if err != nil {
					return err
				}
				for _, p := range g.Proposals {
					crop, err := images.CropRegion(img, p.Box, a.cfg.ContextPad, a.cfg.CropSize)
					if err != nil {
						a.logger.Warn("skipping region", "image", g.Image, "line", p.Line, "error", err)
						continue
					}
					path := filepath.Join(outDir, fmt.Sprintf("%s_%06d.jpg", g.Image, p.Line))
					if err := writeJPEG(path, crop); err != nil {
						return err
					}
					written++
				}
			}
			a.logger.Info("regions written", "count", written, "dir", outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&boxesPath, "boxes", "", "Proposal file, lines of <image> x1 y1 x2 y2 (1-based)")
	cmd.Flags().StringVar(&outDir, "out", "regions", "Output directory")
	_ = cmd.MarkFlagRequired("boxes")
	return cmd
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create crop file")
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return f.Close()
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the image identifiers found in the image directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := util.ListImageIDs(a.cfg.ImageDir)
			if err != nil {
				return errors.Wrapf(err, "list %s", a.cfg.ImageDir)
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}
