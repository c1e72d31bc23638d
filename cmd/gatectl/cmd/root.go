// Package cmd implements the gatectl administration CLI. It operates
// directly on the gatekeeper database.
package cmd

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gopkg.in/yaml.v3"

	"go.pilab.hu/gatekeeper/mongodb"
)

var (
	mongoURI    string
	mongoDBName string
	verbose     bool
)

const connectTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "gatectl",
	Short: "gatectl administers gatekeeper clients, accounts and tokens",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri",
		"mongodb://localhost:27017", "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&mongoDBName, "mongo-db",
		"gatekeeper", "MongoDB database name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")

	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(tokenCmd)
}

// connect opens the database for a single command invocation.
func connect(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return mongodb.Connect(ctx, mongoURI, mongoDBName)
}

// printYAML writes v to stdout the way kubectl-style tools do.
func printYAML(v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
