// Package aisearchcmder is the root aisearch command.
package aisearchcmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/aisearch/cmd/aisearch/ask"
	chatcmder "github.com/papercomputeco/aisearch/cmd/aisearch/chat"
	configcmder "github.com/papercomputeco/aisearch/cmd/aisearch/config"
	initcmder "github.com/papercomputeco/aisearch/cmd/aisearch/init"
	mockcmder "github.com/papercomputeco/aisearch/cmd/aisearch/mock"
	versioncmder "github.com/papercomputeco/aisearch/cmd/version"
)

const aisearchLongDesc string = `aisearch is a streaming chat client for RAG workspaces.

Answers stream in as they are generated, followed by the documents they
cite. Finished turns can be published to Kafka or NATS and traced with
OpenTelemetry.

Get started:
  aisearch chat                  Chat interactively with the configured workspace
  aisearch ask "question"        Ask one question and print the answer
  aisearch mock                  Run a local mock backend for development`

const aisearchShortDesc string = "aisearch - streaming RAG chat client"

func NewAisearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "aisearch",
		Short:        aisearchShortDesc,
		Long:         aisearchLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .aisearch/ config directory")

	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(mockcmder.NewMockCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
