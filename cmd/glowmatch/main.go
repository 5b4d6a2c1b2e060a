package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/glowmatch/glowmatch/embed"
	"github.com/glowmatch/glowmatch/ingest"
	"github.com/glowmatch/glowmatch/internal/profile"
	"github.com/glowmatch/glowmatch/internal/version"
	"github.com/glowmatch/glowmatch/search"
	"github.com/glowmatch/glowmatch/store"
	"github.com/glowmatch/glowmatch/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "glowmatch",
	Short: "Visual similarity search over beauty-creator image embeddings.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Ignore a missing .env; flags and environment still apply.
		_ = godotenv.Load()
		return nil
	},
}

// loadProfile assembles the runtime profile from flags and environment.
func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return instanceProfile, nil
}

// openStore connects the configured driver, runs the idempotent migration,
// and wraps the driver in the store facade. Migrating here also fixes the
// embedding column representation for the process.
func openStore(ctx context.Context, instanceProfile *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	s := store.New(driver, instanceProfile)
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return s, nil
}

// queryVector resolves the query from --text (via the embedding service) or
// --vector-file (a JSON array of floats). Exactly one must be given.
func queryVector(ctx context.Context, instanceProfile *profile.Profile, text, vectorFile string) ([]float32, error) {
	switch {
	case text != "" && vectorFile != "":
		return nil, errors.New("use either --text or --vector-file, not both")
	case text != "":
		embedder, err := embed.NewService(instanceProfile)
		if err != nil {
			return nil, err
		}
		return embedder.Embed(ctx, text)
	case vectorFile != "":
		raw, err := os.ReadFile(vectorFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read vector file %s", vectorFile)
		}
		var vector []float32
		if err := json.Unmarshal(raw, &vector); err != nil {
			return nil, errors.Wrapf(err, "failed to parse vector file %s", vectorFile)
		}
		return vector, nil
	default:
		return nil, errors.New("a query is required: --text or --vector-file")
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal output")
	}
	fmt.Println(string(out))
	return nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), instanceProfile)
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Println("schema is up to date")
			return nil
		},
	}
}

type searchResult struct {
	ID              string  `json:"id"`
	CreatorUsername *string `json:"creator_username"`
	PermalinkURL    string  `json:"permalink_url"`
	MediaID         string  `json:"media_id"`
	Score           float64 `json:"score"`
}

func newSearchCommand() *cobra.Command {
	var (
		text       string
		vectorFile string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Rank stored images by similarity to a query",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), instanceProfile)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			query, err := queryVector(ctx, instanceProfile, text, vectorFile)
			if err != nil {
				return err
			}
			engine, err := search.New(ctx, s)
			if err != nil {
				return err
			}
			matches, err := engine.Search(ctx, query, limit)
			if err != nil {
				return err
			}

			results := make([]searchResult, 0, len(matches))
			for _, match := range matches {
				results = append(results, searchResult{
					ID:              match.Image.ID,
					CreatorUsername: match.Image.CreatorUsername,
					PermalinkURL:    match.Image.PermalinkURL,
					MediaID:         match.Image.MediaID,
					Score:           match.Score,
				})
			}
			return printJSON(results)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "query text, embedded via the configured provider")
	cmd.Flags().StringVar(&vectorFile, "vector-file", "", "path to a JSON array holding the query vector")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	return cmd
}

type creatorResult struct {
	CreatorUsername string  `json:"creator_username"`
	ImageID         string  `json:"image_id"`
	PermalinkURL    string  `json:"permalink_url"`
	Score           float64 `json:"score"`
}

func newBestPerCreatorCommand() *cobra.Command {
	var (
		text       string
		vectorFile string
	)
	cmd := &cobra.Command{
		Use:   "best-per-creator",
		Short: "Find each creator's single best-matching image",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), instanceProfile)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			query, err := queryVector(ctx, instanceProfile, text, vectorFile)
			if err != nil {
				return err
			}
			engine, err := search.New(ctx, s)
			if err != nil {
				return err
			}
			matches, err := engine.SearchBestPerCreator(ctx, query)
			if err != nil {
				return err
			}

			results := make([]creatorResult, 0, len(matches))
			for _, match := range matches {
				results = append(results, creatorResult{
					CreatorUsername: match.CreatorUsername,
					ImageID:         match.Image.ID,
					PermalinkURL:    match.Image.PermalinkURL,
					Score:           match.Score,
				})
			}
			return printJSON(results)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "query text, embedded via the configured provider")
	cmd.Flags().StringVar(&vectorFile, "vector-file", "", "path to a JSON array holding the query vector")
	return cmd
}

// loadItems parses an items file: a JSON array of ingest items with
// embeddings already computed.
func loadItems(path string) ([]*ingest.Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read items file %s", path)
	}
	var items []*ingest.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(err, "failed to parse items file %s", path)
	}
	return items, nil
}

func newIngestCommand() *cobra.Command {
	var (
		itemsFile  string
		unfiltered bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a batch of embedded media items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), instanceProfile)
			if err != nil {
				return err
			}
			defer s.Close()

			items, err := loadItems(itemsFile)
			if err != nil {
				return err
			}
			predicate := ingest.Predicate(ingest.HairAndMakeupCaption)
			if unfiltered {
				predicate = nil
			}
			result, err := ingest.NewGate(s, predicate).Ingest(cmd.Context(), items)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&itemsFile, "items-file", "", "path to a JSON array of items")
	cmd.Flags().BoolVar(&unfiltered, "unfiltered", false, "skip the caption relevance filter")
	_ = cmd.MarkFlagRequired("items-file")
	return cmd
}

func newRefreshCommand() *cobra.Command {
	var (
		itemsFile  string
		unfiltered bool
	)
	cmd := &cobra.Command{
		Use:   "refresh CREATOR",
		Short: "Replace all of a creator's images with a fresh batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), instanceProfile)
			if err != nil {
				return err
			}
			defer s.Close()

			items, err := loadItems(itemsFile)
			if err != nil {
				return err
			}
			predicate := ingest.Predicate(ingest.HairAndMakeupCaption)
			if unfiltered {
				predicate = nil
			}
			result, purged, err := ingest.NewGate(s, predicate).RefreshCreator(cmd.Context(), args[0], items)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"purged": purged,
				"result": result,
			})
		},
	}
	cmd.Flags().StringVar(&itemsFile, "items-file", "", "path to a JSON array of items")
	cmd.Flags().BoolVar(&unfiltered, "unfiltered", false, "skip the caption relevance filter")
	_ = cmd.MarkFlagRequired("items-file")
	return cmd
}

type listedImage struct {
	ID              string  `json:"id"`
	Source          string  `json:"source"`
	SourceID        string  `json:"source_id"`
	CreatorUsername *string `json:"creator_username"`
	PermalinkURL    string  `json:"permalink_url"`
	MediaType       string  `json:"media_type"`
	Caption         *string `json:"caption"`
	CreatedTs       int64   `json:"created_ts"`
}

func newListCommand() *cobra.Command {
	var (
		creator string
		source  string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored images, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), instanceProfile)
			if err != nil {
				return err
			}
			defer s.Close()

			find := &store.FindImage{Limit: limit}
			if creator != "" {
				find.CreatorUsername = &creator
			}
			if source != "" {
				find.Source = &source
			}
			images, err := s.ListImages(cmd.Context(), find)
			if err != nil {
				return err
			}

			results := make([]listedImage, 0, len(images))
			for _, image := range images {
				results = append(results, listedImage{
					ID:              image.ID,
					Source:          image.Source,
					SourceID:        image.SourceID,
					CreatorUsername: image.CreatorUsername,
					PermalinkURL:    image.PermalinkURL,
					MediaType:       image.MediaType,
					Caption:         image.Caption,
					CreatedTs:       image.CreatedTs,
				})
			}
			return printJSON(results)
		},
	}
	cmd.Flags().StringVar(&creator, "creator", "", "only images belonging to this creator")
	cmd.Flags().StringVar(&source, "source", "", "only images from this source")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of rows")
	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store size and search capability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), instanceProfile)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			count, err := s.CountImages(ctx)
			if err != nil {
				return err
			}
			supported, err := s.SupportsVectorIndex(ctx)
			if err != nil {
				return err
			}
			strategy := "bruteforce"
			if supported {
				strategy = "native"
			}
			return printJSON(map[string]any{
				"version":  instanceProfile.Version,
				"dev":      instanceProfile.IsDev(),
				"driver":   instanceProfile.Driver,
				"images":   count,
				"strategy": strategy,
			})
		},
	}
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "postgres")

	rootCmd.PersistentFlags().String("mode", "dev", `mode, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "postgres", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	for _, flag := range []string{"mode", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("glowmatch")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(
		newMigrateCommand(),
		newSearchCommand(),
		newBestPerCreatorCommand(),
		newIngestCommand(),
		newRefreshCommand(),
		newListCommand(),
		newStatsCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
