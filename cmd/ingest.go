package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scribechat/scribechat/config"
	"github.com/scribechat/scribechat/internal/store"
	"github.com/scribechat/scribechat/internal/transcripts"
	"github.com/scribechat/scribechat/models"
)

func ingestCMD() *cobra.Command {
	var cfgPath string
	var ownerID string
	var mediaName string
	var kind string
	var artifactPath string

	var ingest = &cobra.Command{
		Use:   "ingest <transcript-file>",
		Short: "Register a media item and store its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if ownerID == "" || mediaName == "" {
				return fmt.Errorf("--owner and --name are required")
			}

			ctx := context.Background()
			var st *store.Store
			var err error
			if cfg.Storage.Postgres.URL != "" {
				st, err = store.NewWithDSN(ctx, cfg.Storage.Postgres.URL)
			} else {
				st, err = store.New(ctx)
			}
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer st.DB.Close()

			ing := transcripts.NewIngestor(st)
			mediaID, err := ing.IngestFile(ctx, ownerID, mediaName, kind, args[0])
			if err != nil {
				return err
			}
			if artifactPath != "" {
				if err := ing.IngestArtifact(ctx, ownerID, mediaName, artifactPath); err != nil {
					return fmt.Errorf("ingest artifact: %w", err)
				}
			}
			fmt.Printf("ingested %s as media %s\n", args[0], mediaID)
			return nil
		},
	}
	ingest.Flags().StringVar(&ownerID, "owner", "", "owner user id")
	ingest.Flags().StringVar(&mediaName, "name", "", "media name, unique per owner")
	ingest.Flags().StringVar(&kind, "kind", models.MediaKindAudio, "media kind (audio or video)")
	ingest.Flags().StringVar(&artifactPath, "artifact", "", "extracted on-screen text file for video items")
	ingest.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return ingest
}
