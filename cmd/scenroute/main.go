package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zen-systems/scenroute/pkg/config"
	"github.com/zen-systems/scenroute/pkg/detector"
	"github.com/zen-systems/scenroute/pkg/router"
	"github.com/zen-systems/scenroute/pkg/strategy"
)

var (
	configFile string
	logFile    string
	logText    string
	hintFlag   string
	metricFlag []string
	jsonFlag   bool
	debugFlag  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scenroute",
		Short: "Scenario routing and strategy dispatch engine",
		Long: `Scenroute inspects raw analysis input (log text, request statistics,
	numeric metrics, an optional hint), classifies what kind of analysis is
	needed, and dispatches the matching analysis strategies.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to engine config file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(strategiesCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&logFile, "log-file", "", "path to a log file to analyze")
	cmd.Flags().StringVar(&logText, "log", "", "log content to analyze")
	cmd.Flags().StringVar(&hintFlag, "hint", "", "free-text hint describing the desired analysis")
	cmd.Flags().StringArrayVar(&metricFlag, "metric", nil, "metric as name=value (repeatable)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "output JSON")
}

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify input into ranked analysis scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			det, err := buildDetector(cfg)
			if err != nil {
				return err
			}

			input, err := buildInput()
			if err != nil {
				return err
			}

			scenarios := det.Detect(context.Background(), input)

			if jsonFlag {
				return printJSON(scenarios)
			}

			if len(scenarios) == 0 {
				fmt.Println("no scenario identified")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCENARIO\tCONFIDENCE\tMETHOD\tDESCRIPTION")
			for _, sc := range scenarios {
				fmt.Fprintf(w, "%s\t%.0f%%\t%s\t%s\n", sc.Type, sc.Confidence*100, sc.Method, sc.Description)
			}
			return w.Flush()
		},
	}
	addInputFlags(cmd)
	return cmd
}

func routeCmd() *cobra.Command {
	var executeFlag bool
	var asyncFlag bool

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Route input to analysis strategies and optionally execute them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			r, err := buildRouter(cfg)
			if err != nil {
				return err
			}

			input, err := buildInput()
			if err != nil {
				return err
			}

			ctx := context.Background()
			decision := r.Route(ctx, input)

			if !executeFlag {
				if jsonFlag {
					return printJSON(decision)
				}
				for _, line := range decision.Reasoning {
					fmt.Println(line)
				}
				return nil
			}

			execCtx := router.NewContext(input.Content, input.Requests, decision, nil)
			var results []router.Result
			if asyncFlag {
				results = r.ExecuteAsync(ctx, decision, execCtx)
			} else {
				results = r.Execute(ctx, decision, execCtx)
			}

			if jsonFlag {
				return printJSON(map[string]any{
					"decision": decision,
					"results":  results,
				})
			}

			for _, line := range decision.Reasoning {
				fmt.Println(line)
			}
			fmt.Println()
			for _, res := range results {
				status := "ok"
				if !res.Success {
					status = "failed: " + res.Error
				}
				fmt.Printf("strategy[%s] %s (%s)\n", res.StrategyID, status, res.Duration)
			}
			return nil
		},
	}
	addInputFlags(cmd)
	cmd.Flags().BoolVar(&executeFlag, "execute", false, "execute the selected strategies")
	cmd.Flags().BoolVar(&asyncFlag, "async", false, "execute with concurrent fan-out")
	return cmd
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Show the active detection rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rules := detector.BuiltinRules()
			custom, err := cfg.CompileRules()
			if err != nil {
				return err
			}
			rules = append(rules, custom...)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RULE\tSCENARIO\tKEYWORDS\tPATTERNS\tTHRESHOLDS\tWEIGHT")
			for _, rule := range rules {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.1f\n",
					rule.Name, rule.Type, len(rule.Keywords), len(rule.Patterns), len(rule.Thresholds), rule.Weight)
			}
			return w.Flush()
		},
	}
}

func strategiesCmd() *cobra.Command {
	var tagFlag string

	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List registered analysis strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			r, err := buildRouter(cfg)
			if err != nil {
				return err
			}

			var list []*strategy.Strategy
			if tagFlag != "" {
				list = r.Registry().FindByTags(tagFlag)
			} else {
				list = r.Registry().All()
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRIORITY\tMODE\tSCENARIOS\tTAGS")
			for _, s := range list {
				types := make([]string, 0, len(s.ScenarioTypes))
				for _, t := range s.ScenarioTypes {
					types = append(types, string(t))
				}
				sort.Strings(types)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					s.ID, s.Name, s.Priority, s.Mode, strings.Join(types, ","), strings.Join(s.Tags, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&tagFlag, "tag", "", "filter strategies by tag")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show router and registry statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			r, err := buildRouter(cfg)
			if err != nil {
				return err
			}

			return printJSON(r.Statistics())
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func buildDetector(cfg *config.Config) (*detector.Detector, error) {
	custom, err := cfg.CompileRules()
	if err != nil {
		return nil, err
	}

	opts := []detector.Option{
		detector.WithExtraRules(custom...),
		detector.WithMinConfidence(cfg.Detector.MinConfidence),
		detector.WithLLMThreshold(cfg.Detector.LLMThreshold),
		detector.WithDebug(debugFlag),
	}

	clf, err := cfg.BuildClassifier()
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}
	if clf != nil {
		opts = append(opts, detector.WithClassifier(clf))
	}

	return detector.New(opts...), nil
}

func buildRouter(cfg *config.Config) (*router.Router, error) {
	det, err := buildDetector(cfg)
	if err != nil {
		return nil, err
	}

	reg := strategy.NewRegistry()
	if err := registerBuiltinStrategies(reg); err != nil {
		return nil, err
	}

	return router.New(det, reg,
		router.WithMaxStrategies(cfg.Router.MaxStrategies),
		router.WithFallback(*cfg.Router.EnableFallback),
		router.WithDefaultTimeout(cfg.DefaultTimeout()),
		router.WithDebug(debugFlag),
	), nil
}

func buildInput() (detector.Input, error) {
	content := logText
	if logFile != "" {
		data, err := os.ReadFile(logFile)
		if err != nil {
			return detector.Input{}, fmt.Errorf("failed to read log file: %w", err)
		}
		content = string(data)
	}

	metrics, err := parseMetrics(metricFlag)
	if err != nil {
		return detector.Input{}, err
	}

	return detector.Input{
		Content: content,
		Metrics: metrics,
		Hint:    hintFlag,
	}, nil
}

func parseMetrics(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metrics := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid metric %q, expected name=value", pair)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid metric value %q: %w", pair, err)
		}
		metrics[name] = v
	}
	return metrics, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
