package server

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gocddb/core/cddb"
	"gocddb/logger"
)

var smallWords = []string{
	"In", "By", "On", "It", "Is", "It's", "Of", "Or", "To", "Into", "As",
	"Are", "A", "An", "And", "Ain't", "All", "The", "Then", "Than",
	"These", "This", "Let", "For", "From", "Has", "Have", "Go", "Goes",
	"With", "Within", "Like", "Very",
}

type wordRule struct {
	pattern *regexp.Regexp
	replace string
}

var smallWordRules = func() []wordRule {
	rules := make([]wordRule, 0, len(smallWords))
	for _, w := range smallWords {
		rules = append(rules, wordRule{
			pattern: regexp.MustCompile(`(\w) ` + regexp.QuoteMeta(w) + ` `),
			replace: "${1} " + strings.ToLower(w) + " ",
		})
	}
	return rules
}()

func lowercaseSmallWords(s string) string {
	for _, r := range smallWordRules {
		s = r.pattern.ReplaceAllString(s, r.replace)
	}
	return s
}

var (
	alpha    = regexp.MustCompile(`^[A-Za-z]+$`)
	alphanum = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// readArgs returns category and disc id of a well formed "cddb read" command.
func readArgs(command string) (category, discID string, ok bool) {
	fields := strings.Fields(command)
	if len(fields) != 4 || !strings.EqualFold(fields[0], "cddb") || !strings.EqualFold(fields[1], "read") {
		return "", "", false
	}
	if !alpha.MatchString(fields[2]) || !alphanum.MatchString(fields[3]) {
		return "", "", false
	}
	return fields[2], fields[3], true
}

// LowercaseSmallWords is a response hook that lowercases articles,
// conjunctions and short prepositions inside disc and track titles of
// successful reads, e.g. "Live In The City" becomes "Live in the City".
func LowercaseSmallWords(_ context.Context, command string, resp *cddb.Response) *cddb.Response {
	category, _, ok := readArgs(command)
	if !ok || resp.Status != cddb.StatusFollows {
		return nil
	}

	disc := cddb.ParseRecord(resp.Data, category)
	disc.Title = lowercaseSmallWords(disc.Title)
	for i := range disc.Tracks {
		disc.Tracks[i].Title = lowercaseSmallWords(disc.Tracks[i].Title)
		if disc.Tracks[i].Artist != disc.Artist {
			disc.Tracks[i].Artist = lowercaseSmallWords(disc.Tracks[i].Artist)
		}
	}
	resp.Data = cddb.Serialize(disc)
	resp.Message = strings.Replace(resp.Message, "CD database entry ",
		"CD database entry (response modified by LowercaseSmallWords) ", 1)
	return nil
}

// LocalDumpHook returns a command hook answering "cddb read" from a local
// FreeDB dump under dir when the entry exists there.
func LocalDumpHook(dir string) CommandHook {
	return func(_ context.Context, command string) *cddb.Response {
		category, discID, ok := readArgs(command)
		if !ok {
			return nil
		}
		data, err := os.ReadFile(filepath.Join(dir, category, discID))
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("failed to read local entry", logger.String("command", command), logger.ErrorField(err))
			}
			return nil
		}
		message := category + " " + discID + " CD database entry (local copy) follows " + cddb.MsgListFollows
		return cddb.NewListResponse(cddb.StatusFollows, message, strings.TrimSpace(string(data)))
	}
}
