package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"qsurvey/internal/bootstrap"
	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/domain/quality"
	"qsurvey/internal/errs"
)

var ragCmd = &cobra.Command{
	Use:   "rag",
	Short: "Reference document and question answering commands",
}

var ragAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Add a text document to the local document store",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		path := cmd.Flags().Args()[0]
		content, err := os.ReadFile(path)
		if err != nil {
			return errs.Wrapf(err, "read %s", path)
		}
		name := filepath.Base(path)
		if err := svcs.RAG.Store().Put(name, content); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "document added: %s (%d bytes)\n", name, len(content))
		return nil
	}),
}

var ragListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		names, err := svcs.RAG.Store().List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no documents stored")
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}),
}

var ragRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		name := cmd.Flags().Args()[0]
		if err := svcs.RAG.Store().Delete(name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "document removed: %s\n", name)
		return nil
	}),
}

var ragIndexCmd = &cobra.Command{
	Use:   "index <name>",
	Short: "Chunk, embed and index a stored document",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		name := cmd.Flags().Args()[0]
		chunks, err := svcs.RAG.IndexDocument(ctx, name, func(done, total int) {
			fmt.Fprintf(cmd.OutOrStdout(), "임베딩 중... (%d/%d)\n", done, total)
		})
		if err != nil {
			logging.Error(ctx, "index document failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "index document")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s 인덱싱 완료 (%d개 섹션)\n", name, chunks)
		return nil
	}),
}

var ragSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Store and index the built-in quality characteristic reference",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		catalog, err := quality.Load()
		if err != nil {
			return err
		}
		const name = "iso25010-catalog.txt"
		if err := svcs.RAG.Store().Put(name, []byte(catalog.ReferenceText())); err != nil {
			return err
		}
		chunks, err := svcs.RAG.IndexDocument(ctx, name, func(done, total int) {
			fmt.Fprintf(cmd.OutOrStdout(), "임베딩 중... (%d/%d)\n", done, total)
		})
		if err != nil {
			logging.Error(ctx, "seed reference failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "seed reference document")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s 인덱싱 완료 (%d개 섹션)\n", name, chunks)
		return nil
	}),
}

var ragAskCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question grounded on the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		question := strings.Join(cmd.Flags().Args(), " ")
		answer, err := svcs.RAG.Ask(ctx, question)
		if err != nil {
			logging.Error(ctx, "rag ask failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "answer question")
		}

		fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
		if len(answer.Sources) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "\n참조된 문서:")
			for _, source := range answer.Sources {
				fmt.Fprintf(cmd.OutOrStdout(), "- %s\n", source)
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(ragCmd)
	ragCmd.AddCommand(ragAddCmd)
	ragCmd.AddCommand(ragListCmd)
	ragCmd.AddCommand(ragRemoveCmd)
	ragCmd.AddCommand(ragIndexCmd)
	ragCmd.AddCommand(ragSeedCmd)
	ragCmd.AddCommand(ragAskCmd)
}
