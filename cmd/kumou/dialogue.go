package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/kumou/internal/dialogue"
	"github.com/spf13/cobra"
)

func newDialogueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dialogue",
		Short: "Browse the dialogue corpus",
	}

	cmd.AddCommand(newDialogueTopicsCmd())
	cmd.AddCommand(newDialogueListCmd())
	cmd.AddCommand(newDialogueShowCmd())

	return cmd
}

func loadCorpus() (*dialogue.Store, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Paths.DialogueDir == "" {
		return nil, errors.New("no dialogue directory configured (--paths-dialogue-dir)")
	}
	return dialogue.Load(cfg.Paths.DialogueDir)
}

func newDialogueTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List corpus topics with their dialogue counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := loadCorpus()
			if err != nil {
				return err
			}

			var rows [][]string
			for _, t := range store.Topics() {
				rows = append(rows, []string{
					fmt.Sprint(t.TopicID),
					t.TopicName,
					dialogue.TopicNameJa(t.TopicName),
					fmt.Sprint(t.DialogueCount),
				})
			}
			return writeTable(cmd.OutOrStdout(), []string{"id", "topic", "名前", "dialogues"}, rows)
		},
	}
}

func newDialogueListCmd() *cobra.Command {
	var topic uint32
	var page int
	var perPage int
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of a topic's dialogues",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := loadCorpus()
			if err != nil {
				return err
			}

			p := store.ByTopic(topic, page, perPage, search)
			out := cmd.OutOrStdout()

			width, _ := terminalWidth(out)
			var rows [][]string
			for _, d := range p.Dialogues {
				first := ""
				if len(d.Utterances) > 0 {
					first = d.Utterances[0].Utterance
				}
				rows = append(rows, []string{
					fmt.Sprint(d.DialogueID),
					fmt.Sprint(d.DialogueLength),
					clip(first, max(width-20, 20)),
				})
			}
			if err := writeTable(out, []string{"id", "turns", "opening"}, rows); err != nil {
				return err
			}

			_, err = fmt.Fprintf(out, "page %d/%d (%d dialogues)\n", p.Page+1, max(p.TotalPages, 1), p.Total)
			return err
		},
	}

	cmd.Flags().Uint32Var(&topic, "topic", 1, "Topic id")
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&perPage, "per-page", dialogue.DefaultPerPage, "Dialogues per page")
	cmd.Flags().StringVar(&search, "search", "", "Only dialogues with an utterance containing this text")

	return cmd
}

func newDialogueShowCmd() *cobra.Command {
	var analyze bool

	cmd := &cobra.Command{
		Use:   "show <dialogue-id>",
		Short: "Print a dialogue, optionally with each utterance tokenized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid dialogue id %q: %w", args[0], err)
			}

			store, err := loadCorpus()
			if err != nil {
				return err
			}

			d, err := store.Get(uint32(id))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "#%d %s (%s)\n", d.DialogueID, d.TopicName, dialogue.TopicNameJa(d.TopicName))

			if !analyze {
				for _, u := range d.Utterances {
					_, _ = fmt.Fprintf(out, "%s: %s\n", u.Speaker, u.Utterance)
				}
				return nil
			}

			an, err := newAnalyzer(activeCfg)
			if err != nil {
				return err
			}
			for _, u := range d.Utterances {
				s, err := an.Analyze(u.Utterance)
				if err != nil {
					return fmt.Errorf("turn %d: %w", u.TurnNum, err)
				}
				surfaces := make([]string, len(s.Tokens))
				for i, tok := range s.Tokens {
					surfaces[i] = tok.Surface
				}
				_, _ = fmt.Fprintf(out, "%s: %s\n", u.Speaker, strings.Join(surfaces, " | "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&analyze, "analyze", false, "Tokenize each utterance")

	return cmd
}
