package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-carto/internal/config"
	"github.com/joeblew999/plat-carto/internal/db"
	"github.com/joeblew999/plat-carto/internal/obs"
	"github.com/joeblew999/plat-carto/internal/server"
	"github.com/joeblew999/plat-carto/internal/service"
	"github.com/joeblew999/plat-carto/pkg/render"
)

// Options defines all CLI flags and env vars for the carto server.
// Flags: --host, --port, --data-dir, --tile-url, --no-db
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_TILE_URL, SERVICE_NO_DB
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory holding sources/, tiles/ and maps.json" default:".data"`
	TileURL string `doc:"Default XYZ tile URL template" default:""`
	NoDB    bool   `doc:"Do not open DuckDB" default:"false"`
}

func newServer(opts *Options) *server.Server {
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		TileURL: opts.TileURL,
		NoDB:    opts.NoDB,
	})
}

// newServices builds the services the CLI commands share with the server.
func newServices(opts *Options, needDB bool) (*service.TileService, *service.RenderService, func()) {
	var conn *sql.DB
	if needDB && !opts.NoDB {
		c, err := db.Open(db.Config{DataDir: opts.DataDir, DBName: "carto"})
		if err != nil {
			log.Printf("op=cli.db err=%v", err)
		} else {
			conn = c
		}
	}
	sources := service.NewSourceService(opts.DataDir, conn)
	tiles := service.NewTileService(opts.DataDir)
	renderer := service.NewRenderService(sources, tiles, nil)
	if opts.TileURL != "" {
		renderer.TileURL = opts.TileURL
	}
	return tiles, renderer, func() {
		if conn != nil {
			conn.Close()
		}
	}
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv := newServer(opts)

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-carto API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Render:  %s/api/v1/render\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
		hooks.OnStop(func() {
			srv.Close()
		})
	})

	cli.Root().Use = "carto"
	cli.Root().Short = "Static maps of vector data over web-map basemaps"
	cli.Root().Version = "0.1.0"

	cli.Root().AddCommand(renderCmd(), basemapCmd(), specCmd())
	cli.Run()
}

// render subcommand: draw a map document to a file
func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a YAML or JSON map document to an image",
		Args:  cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			configPath, _ := cmd.Flags().GetString("config")
			output, _ := cmd.Flags().GetString("output")
			if err := runRender(cmd.Context(), opts, configPath, output); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}),
	}
	cmd.Flags().StringP("config", "c", "map.yaml", "Map document")
	cmd.Flags().StringP("output", "o", "", "Output image; the extension selects the format (default <id>.png)")
	return cmd
}

func runRender(ctx context.Context, opts *Options, configPath, output string) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = obs.WithRequestID(ctx, obs.NewRequestID())
	defer obs.Time(ctx, "cli.render")(&err)

	spec, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if output == "" {
		name := spec.ID
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath))
		}
		output = name + "." + string(spec.OutputFormat())
	} else if ext := filepath.Ext(output); ext != "" {
		if _, err := render.ParseFormat(ext); err != nil {
			return err
		}
		spec.Format = strings.TrimPrefix(ext, ".")
	}

	needDB := spec.Source.Query != "" || (spec.Layer != nil && spec.Layer.Query != "") ||
		strings.Contains(strings.ToLower(spec.Source.File), "parquet")
	_, renderer, release := newServices(opts, needDB)
	defer release()

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if _, err := renderer.Render(ctx, spec, f); err != nil {
		f.Close()
		os.Remove(output)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", output)
	return nil
}

// basemap subcommands: list and build PMTiles basemap archives
func basemapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "basemap",
		Short: "Manage raster PMTiles basemap archives",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List basemap archives in the data directory",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			tiles, _, release := newServices(opts, false)
			defer release()
			files, err := tiles.List()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			for _, f := range files {
				fmt.Printf("%-30s %10s  %-5s z%d-%d\n", f.Name, f.Size, f.TileType, f.MinZoom, f.MaxZoom)
			}
		}),
	}

	packCmd := &cobra.Command{
		Use:   "pack NAME",
		Short: "Download the tiles of an extent into a PMTiles archive",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			bound, _ := cmd.Flags().GetFloat64Slice("bound")
			minZoom, _ := cmd.Flags().GetInt("min-zoom")
			maxZoom, _ := cmd.Flags().GetInt("max-zoom")
			maxTiles, _ := cmd.Flags().GetInt("max-tiles")
			url, _ := cmd.Flags().GetString("url")
			if url == "" {
				url = opts.TileURL
			}

			tiles, _, release := newServices(opts, false)
			defer release()
			tf, err := tiles.Pack(cmd.Context(), service.PackOptions{
				OutputName: args[0],
				URL:        url,
				Bound:      bound,
				MinZoom:    minZoom,
				MaxZoom:    maxZoom,
				MaxTiles:   maxTiles,
			}, func(progress int, status string) {
				fmt.Printf("[%3d%%] %s\n", progress, status)
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Wrote %s (%s, z%d-%d)\n", tf.Name, tf.Size, tf.MinZoom, tf.MaxZoom)
		}),
	}
	packCmd.Flags().Float64Slice("bound", nil, "min lon,min lat,max lon,max lat")
	packCmd.Flags().Int("min-zoom", 0, "Minimum zoom level")
	packCmd.Flags().Int("max-zoom", 12, "Maximum zoom level")
	packCmd.Flags().Int("max-tiles", 2000, "Refuse packs needing more tiles")
	packCmd.Flags().String("url", "", "XYZ tile URL template (default OpenStreetMap)")
	packCmd.MarkFlagRequired("bound")

	cmd.AddCommand(listCmd, packCmd)
	return cmd
}

// spec subcommand: export OpenAPI spec
func specCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.NoDB = true
			srv := newServer(opts)
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	cmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	return cmd
}
