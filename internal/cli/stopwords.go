package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"museumtopics/internal/adapter/analyzer"
)

var stopwordsJSON bool

var stopwordsCmd = &cobra.Command{
	Use:   "stopwords",
	Short: "Print the stop-word policy",
	Long: `Print every term that is never used as a topic keyword: the built-in English
list, the museum-specific additions and the stopwords.extra entries from the
config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := analyzer.NewStopWordPolicy(GetConfig().StopWords.Extra...)
		return printStopWords(cmd.OutOrStdout(), policy, stopwordsJSON)
	},
}

func init() {
	rootCmd.AddCommand(stopwordsCmd)
	stopwordsCmd.Flags().BoolVar(&stopwordsJSON, "json", false, "output as JSON")
}

func printStopWords(w io.Writer, policy *analyzer.StopWordPolicy, asJSON bool) error {
	words := policy.Words()
	if asJSON {
		return json.NewEncoder(w).Encode(words)
	}
	fmt.Fprintf(w, "%d stop words\n", policy.Len())
	for i := 0; i < len(words); i += 8 {
		fmt.Fprintln(w, strings.Join(words[i:min(i+8, len(words))], " "))
	}
	return nil
}
