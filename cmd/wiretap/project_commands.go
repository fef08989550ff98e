package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"wiretap/internal/config"
	"wiretap/internal/libraries"
	"wiretap/internal/logging"
	"wiretap/internal/wiretap"
)

type projectOptions struct {
	width         string
	height        string
	fps           string
	aspect        string
	field         string
	depth         string
	description   string
	setupDir      string
	librariesFile string
}

type createProjectResult struct {
	Project   string `json:"project"`
	Path      string `json:"path"`
	Created   bool   `json:"created"`
	Libraries int    `json:"libraries"`
}

func newCreateProjectCommand(ctx *commandContext) *cobra.Command {
	var opts projectOptions

	cmd := &cobra.Command{
		Use:   "create-project <name>",
		Short: "Create a Wiretap project",
		Long: heredoc.Doc(`
			Create a project on the first volume of the host, with a workspace and
			a desktop. The frame settings are stored as the project's XML metadata.

			Settings not given as flags come from the [project] section of the
			configuration. An existing project is left untouched.

			--libraries-file names a YAML document mapping a library list to the
			libraries and folders to create in it. A malformed document is ignored.
		`),
		Example: heredoc.Doc(`
			wiretap create-project PRJ_001 -W 3840 -H 2160 --fps 24 --depth 12-bit
			wiretap -s flame01 create-project PRJ_002 --libraries-file libraries.yaml
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			settings, err := resolveProjectSettings(cmd, cfg, opts)
			if err != nil {
				return err
			}
			logger, err := ctx.loggerValue()
			if err != nil {
				return err
			}
			var lists []libraries.List
			if path := strings.TrimSpace(opts.librariesFile); path != "" {
				if lists, err = libraries.Load(path, logger); err != nil {
					return err
				}
			}

			name := args[0]
			return ctx.withHandler(cmd, func(runCtx context.Context, handler *wiretap.Handler) error {
				project, err := handler.CreateProject(runCtx, name, settings)
				if err != nil {
					return err
				}
				applied, err := applyLibraries(runCtx, handler, project, lists, logger)
				if err != nil {
					return err
				}

				result := createProjectResult{
					Project:   name,
					Path:      project.Node.Path(),
					Created:   project.Created,
					Libraries: applied,
				}
				return ctx.printResult(cmd, result, func(out io.Writer) error {
					if !project.Created {
						fmt.Fprintf(out, "Project %s already exists; nothing changed\n", name)
						return nil
					}
					fmt.Fprintf(out, "Created project %s (%s)\n", name, result.Path)
					if applied > 0 {
						fmt.Fprintf(out, "Created %d libraries\n", applied)
					}
					return nil
				})
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.width, "width", "W", "", "Frame width (default: project.width, 1920)")
	flags.StringVarP(&opts.height, "height", "H", "", "Frame height (default: project.height, 1080)")
	flags.StringVar(&opts.fps, "fps", "", "Frame rate (default: project.fps, 25)")
	flags.StringVarP(&opts.aspect, "aspect", "a", "", "Aspect ratio (default: project.aspect, 1.7778)")
	flags.StringVar(&opts.field, "field", "", "Field dominance: "+strings.Join(config.FieldDominanceChoices, ", ")+" (default: project.field, PROGRESSIVE)")
	flags.StringVar(&opts.depth, "depth", "", "Frame depth: "+strings.Join(config.DepthChoices, ", ")+" (default: project.depth, 10-bit)")
	flags.StringVar(&opts.description, "description", "", "Project description")
	flags.StringVar(&opts.setupDir, "setupdir", "", "Setup directory")
	flags.StringVar(&opts.librariesFile, "libraries-file", "", "YAML file describing libraries to create in the project")
	return cmd
}

// resolveProjectSettings overlays explicitly given flags on the configured
// project defaults and validates the result.
func resolveProjectSettings(cmd *cobra.Command, cfg *config.Config, opts projectOptions) (wiretap.ProjectSettings, error) {
	project := cfg.Project
	flags := cmd.Flags()
	overlay := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = strings.TrimSpace(value)
		}
	}
	overlay("width", &project.Width, opts.width)
	overlay("height", &project.Height, opts.height)
	overlay("fps", &project.FPS, opts.fps)
	overlay("aspect", &project.Aspect, opts.aspect)
	overlay("field", &project.FieldDominance, opts.field)
	overlay("depth", &project.Depth, opts.depth)
	project.FieldDominance = strings.ToUpper(project.FieldDominance)

	if err := project.Validate(); err != nil {
		return wiretap.ProjectSettings{}, err
	}
	return wiretap.ProjectSettings{
		FrameWidth:     project.Width,
		FrameHeight:    project.Height,
		FrameDepth:     project.Depth,
		AspectRatio:    project.Aspect,
		FrameRate:      project.FPS + " fps",
		FieldDominance: project.FieldDominance,
		Description:    opts.description,
		SetupDir:       strings.TrimSpace(opts.setupDir),
	}, nil
}

// applyLibraries creates the libraries of every list in a project this
// invocation created. It returns the number of libraries created.
func applyLibraries(ctx context.Context, handler *wiretap.Handler, project *wiretap.Project, lists []libraries.List, logger *slog.Logger) (int, error) {
	if len(lists) == 0 {
		return 0, nil
	}
	if !project.Created {
		logger.Info("project already exists; libraries skipped",
			logging.String(logging.FieldProject, project.Name),
			logging.Int("libraries", libraries.Count(lists)))
		return 0, nil
	}
	applied := 0
	for _, list := range lists {
		if err := handler.CreateProjectLibraries(ctx, project.Node, list.Name, list.Libraries); err != nil {
			return applied, err
		}
		applied += len(list.Libraries)
	}
	return applied, nil
}

type projectMetadataResult struct {
	Project  string               `json:"project"`
	Settings []projectSettingJSON `json:"settings"`
}

type projectSettingJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func newShowProjectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show-project <name>",
		Short: "Show a project's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return ctx.withHandler(cmd, func(runCtx context.Context, handler *wiretap.Handler) error {
				doc, err := handler.ProjectMetadata(runCtx, name)
				if err != nil {
					return err
				}
				entries, err := wiretap.DecodeProjectMetadata(doc)
				if err != nil {
					return err
				}
				result := projectMetadataResult{Project: name, Settings: make([]projectSettingJSON, 0, len(entries))}
				for _, entry := range entries {
					result.Settings = append(result.Settings, projectSettingJSON{Key: entry.Key, Value: entry.Value})
				}
				return ctx.printResult(cmd, result, func(out io.Writer) error {
					_, err := fmt.Fprint(out, doc)
					return err
				})
			})
		},
	}
}
