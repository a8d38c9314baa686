package commands

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/isotranslate/iso/pkg/archive"
	"github.com/isotranslate/iso/pkg/cli"
	"github.com/isotranslate/iso/pkg/iso"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Inspect, export and clear the stored transcript",
}

var transcriptShowRaw bool

var transcriptShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored transcript",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgCtx, _ := currentContext()
		store, err := openTranscript(cfgCtx)
		if err != nil {
			return err
		}
		defer store.Close()

		segs, err := store.Segments(cmd.Context())
		if err != nil {
			return err
		}
		if !transcriptShowRaw {
			segs = iso.Merger{}.Compress(segs)
		}
		if len(segs) == 0 {
			fmt.Println("Transcript is empty.")
			return nil
		}
		for _, line := range segmentLines(segs) {
			fmt.Println(line)
		}
		return nil
	},
}

var transcriptClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored transcript segments",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgCtx, _ := currentContext()
		store, err := openTranscript(cfgCtx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.ClearSegments(cmd.Context()); err != nil {
			return err
		}
		cli.PrintSuccess("Transcript cleared.")
		return nil
	},
}

var (
	exportFormat string
	exportName   string
	exportOut    string
	exportS3     bool
	exportRaw    bool
)

var transcriptExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the transcript as text or JSON",
	Long: `Export the transcript as text or JSON.

By default the export lands in the context's archive directory (or
~/.iso/exports). With --s3 it is uploaded to the configured
S3-compatible bucket instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgCtx, _ := currentContext()
		store, err := openTranscript(cfgCtx)
		if err != nil {
			return err
		}
		defer store.Close()

		segs, err := store.Segments(cmd.Context())
		if err != nil {
			return err
		}
		if !exportRaw {
			segs = iso.Merger{}.Compress(segs)
		}

		sink, location, err := exportSink(cmd.Context(), cfgCtx)
		if err != nil {
			return err
		}

		name := exportName
		switch exportFormat {
		case "text":
			if name == "" {
				name = archive.DefaultName("txt")
			}
			err = archive.ExportText(cmd.Context(), sink, name, segs)
		case "json":
			if name == "" {
				name = archive.DefaultName("json")
			}
			usage, uerr := store.Usage(cmd.Context())
			if uerr != nil {
				return uerr
			}
			err = archive.ExportJSON(cmd.Context(), sink, name, segs, usage)
		default:
			return fmt.Errorf("unknown format %q (want text or json)", exportFormat)
		}
		if err != nil {
			return err
		}
		cli.PrintSuccess("Exported %d segments to %s/%s", len(segs), location, name)
		return nil
	},
}

// exportSink builds the archive destination: an S3 bucket when --s3 is
// given, otherwise a local directory.
func exportSink(ctx context.Context, cfgCtx *cli.Context) (archive.Sink, string, error) {
	var ac *cli.ArchiveConfig
	if cfgCtx != nil && cfgCtx.Archive != nil {
		ac = cfgCtx.Archive
	}

	if exportS3 {
		if ac == nil || ac.S3Bucket == "" {
			return nil, "", fmt.Errorf("no S3 bucket configured; set it with 'iso config set archive.s3-bucket <name>'")
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if ac.S3Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(ac.S3Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, "", fmt.Errorf("load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if ac.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(ac.S3Endpoint)
				o.UsePathStyle = true
			}
		})
		location := "s3://" + ac.S3Bucket
		if ac.S3Prefix != "" {
			location += "/" + ac.S3Prefix
		}
		return archive.NewBucket(client, ac.S3Bucket, ac.S3Prefix), location, nil
	}

	dir := exportOut
	if dir == "" && ac != nil {
		dir = ac.Dir
	}
	if dir == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return nil, "", err
		}
		dir = paths.ExportDir()
	}
	sink, err := archive.NewDir(dir)
	if err != nil {
		return nil, "", err
	}
	return sink, dir, nil
}

func init() {
	transcriptShowCmd.Flags().BoolVar(&transcriptShowRaw, "raw", false, "show unmerged segments")

	f := transcriptExportCmd.Flags()
	f.StringVar(&exportFormat, "format", "text", "export format: text or json")
	f.StringVar(&exportName, "name", "", "export file name (default: timestamped)")
	f.StringVar(&exportOut, "out", "", "local export directory")
	f.BoolVar(&exportS3, "s3", false, "upload to the configured S3 bucket")
	f.BoolVar(&exportRaw, "raw", false, "export unmerged segments")

	transcriptCmd.AddCommand(transcriptShowCmd)
	transcriptCmd.AddCommand(transcriptClearCmd)
	transcriptCmd.AddCommand(transcriptExportCmd)

	rootCmd.AddCommand(transcriptCmd)
}
