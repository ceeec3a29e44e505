package citation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ScriptureRef is a parsed Bible reference.
type ScriptureRef struct {
	Translation string `json:"translation"`
	Book        string `json:"book"`
	Chapter     int    `json:"chapter"`
	Verse       int    `json:"verse"`
	VerseEnd    int    `json:"verse_end,omitempty"`
}

// String renders the reference as "Book Chapter:Verse[-End]".
func (r ScriptureRef) String() string {
	var sb strings.Builder
	sb.WriteString(r.Book)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(r.Chapter))
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(r.Verse))
	if r.VerseEnd > r.Verse {
		sb.WriteByte('-')
		sb.WriteString(strconv.Itoa(r.VerseEnd))
	}
	return sb.String()
}

// scriptureGrammar parses human-readable references.
// Examples: "John 3:16", "1 Cor 13:4-7", "Matt. 5:3"
//
//nolint:govet // participle grammar tags are not standard struct tags
type scriptureGrammar struct {
	Ordinal string `@Int?`
	Book    string `@Ident "."?`
	Chapter int    `@Int ":"`
	Verse   int    `@Int`
	End     *int   `( "-" @Int )?`
}

var scriptureLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z]+`},
	{Name: "Punct", Pattern: `[:.\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var scriptureParser = participle.MustBuild[scriptureGrammar](
	participle.Lexer(scriptureLexer),
	participle.Elide("Whitespace"),
)

// scriptureCandidate finds spans worth handing to the grammar.
var scriptureCandidate = regexp.MustCompile(`\b(?:[1-3]\s?)?[A-Z][A-Za-z]+\.?\s+\d{1,3}:\d{1,3}(?:\s?[-–]\s?\d{1,3})?`)

// ParseScripture parses a single reference such as "1 Cor 13:4". The book
// must be a known name or abbreviation; it is returned as its OSIS id.
func ParseScripture(s string) (ScriptureRef, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "–", "-")
	parsed, err := scriptureParser.ParseString("", s)
	if err != nil {
		return ScriptureRef{}, false
	}
	book, ok := NormalizeBook(parsed.Ordinal + parsed.Book)
	if !ok || parsed.Chapter < 1 || parsed.Verse < 1 {
		return ScriptureRef{}, false
	}
	ref := ScriptureRef{Book: book, Chapter: parsed.Chapter, Verse: parsed.Verse}
	if parsed.End != nil && *parsed.End > parsed.Verse {
		ref.VerseEnd = *parsed.End
	}
	return ref, true
}

// ScriptureMatcher finds Bible references in free text.
type ScriptureMatcher struct {
	Translation string
}

// NewScriptureMatcher returns a matcher that tags references with translation.
func NewScriptureMatcher(translation string) *ScriptureMatcher {
	return &ScriptureMatcher{Translation: translation}
}

type scriptureHit struct {
	start, end int
	ref        ScriptureRef
}

func (m *ScriptureMatcher) find(text string) []scriptureHit {
	var hits []scriptureHit
	for _, loc := range scriptureCandidate.FindAllStringIndex(text, -1) {
		ref, ok := ParseScripture(text[loc[0]:loc[1]])
		if !ok {
			continue
		}
		ref.Translation = m.Translation
		hits = append(hits, scriptureHit{start: loc[0], end: loc[1], ref: ref})
	}
	return hits
}

// NormalizeBook maps a book name or abbreviation ("1 Cor", "Jn", "Genesis")
// to its OSIS id.
func NormalizeBook(name string) (string, bool) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSuffix(strings.TrimSpace(name), "."), " ", ""))
	if id, ok := bookIndex[key]; ok {
		return id, true
	}
	return "", false
}

// books lists OSIS ids with their accepted spellings, lowercase and without
// spaces.
var books = []struct {
	id    string
	names []string
}{
	{"Gen", []string{"gen", "genesis", "gn"}},
	{"Exod", []string{"exod", "exodus", "ex", "exo"}},
	{"Lev", []string{"lev", "leviticus", "lv"}},
	{"Num", []string{"num", "numbers", "nm"}},
	{"Deut", []string{"deut", "deuteronomy", "dt"}},
	{"Josh", []string{"josh", "joshua", "jos"}},
	{"Judg", []string{"judg", "judges", "jgs"}},
	{"Ruth", []string{"ruth", "ru"}},
	{"1Sam", []string{"1sam", "1samuel", "1sm"}},
	{"2Sam", []string{"2sam", "2samuel", "2sm"}},
	{"1Kgs", []string{"1kgs", "1kings", "1kg"}},
	{"2Kgs", []string{"2kgs", "2kings", "2kg"}},
	{"1Chr", []string{"1chr", "1chronicles", "1chron"}},
	{"2Chr", []string{"2chr", "2chronicles", "2chron"}},
	{"Ezra", []string{"ezra", "ezr"}},
	{"Neh", []string{"neh", "nehemiah"}},
	{"Tob", []string{"tob", "tobit", "tb"}},
	{"Jdt", []string{"jdt", "judith"}},
	{"Esth", []string{"esth", "esther", "est"}},
	{"1Macc", []string{"1macc", "1maccabees", "1mc"}},
	{"2Macc", []string{"2macc", "2maccabees", "2mc"}},
	{"Job", []string{"job", "jb"}},
	{"Ps", []string{"ps", "psalm", "psalms", "pss", "psa"}},
	{"Prov", []string{"prov", "proverbs", "prv", "pr"}},
	{"Eccl", []string{"eccl", "ecclesiastes", "qoh", "qoheleth"}},
	{"Song", []string{"song", "songofsongs", "sg", "cant"}},
	{"Wis", []string{"wis", "wisdom"}},
	{"Sir", []string{"sir", "sirach", "ecclus"}},
	{"Isa", []string{"isa", "isaiah", "is"}},
	{"Jer", []string{"jer", "jeremiah"}},
	{"Lam", []string{"lam", "lamentations"}},
	{"Bar", []string{"bar", "baruch"}},
	{"Ezek", []string{"ezek", "ezekiel", "ez"}},
	{"Dan", []string{"dan", "daniel", "dn"}},
	{"Hos", []string{"hos", "hosea"}},
	{"Joel", []string{"joel", "jl"}},
	{"Amos", []string{"amos", "am"}},
	{"Obad", []string{"obad", "obadiah", "ob"}},
	{"Jonah", []string{"jonah", "jon"}},
	{"Mic", []string{"mic", "micah", "mi"}},
	{"Nah", []string{"nah", "nahum", "na"}},
	{"Hab", []string{"hab", "habakkuk", "hb"}},
	{"Zeph", []string{"zeph", "zephaniah", "zep"}},
	{"Hag", []string{"hag", "haggai", "hg"}},
	{"Zech", []string{"zech", "zechariah", "zec"}},
	{"Mal", []string{"mal", "malachi"}},
	{"Matt", []string{"matt", "matthew", "mt"}},
	{"Mark", []string{"mark", "mk", "mrk"}},
	{"Luke", []string{"luke", "lk"}},
	{"John", []string{"john", "jn", "jhn"}},
	{"Acts", []string{"acts", "act"}},
	{"Rom", []string{"rom", "romans", "rm"}},
	{"1Cor", []string{"1cor", "1corinthians"}},
	{"2Cor", []string{"2cor", "2corinthians"}},
	{"Gal", []string{"gal", "galatians"}},
	{"Eph", []string{"eph", "ephesians"}},
	{"Phil", []string{"phil", "philippians"}},
	{"Col", []string{"col", "colossians"}},
	{"1Thess", []string{"1thess", "1thessalonians", "1thes"}},
	{"2Thess", []string{"2thess", "2thessalonians", "2thes"}},
	{"1Tim", []string{"1tim", "1timothy", "1tm"}},
	{"2Tim", []string{"2tim", "2timothy", "2tm"}},
	{"Titus", []string{"titus", "ti", "tit"}},
	{"Phlm", []string{"phlm", "philemon"}},
	{"Heb", []string{"heb", "hebrews"}},
	{"Jas", []string{"jas", "james"}},
	{"1Pet", []string{"1pet", "1peter", "1pt"}},
	{"2Pet", []string{"2pet", "2peter", "2pt"}},
	{"1John", []string{"1john", "1jn"}},
	{"2John", []string{"2john", "2jn"}},
	{"3John", []string{"3john", "3jn"}},
	{"Jude", []string{"jude"}},
	{"Rev", []string{"rev", "revelation", "rv", "apoc"}},
}

var bookIndex = func() map[string]string {
	idx := make(map[string]string, len(books)*3)
	for _, b := range books {
		for _, n := range b.names {
			idx[n] = b.id
		}
	}
	return idx
}()

// IsBook reports whether id is a known OSIS book id.
func IsBook(id string) bool {
	for _, b := range books {
		if b.id == id {
			return true
		}
	}
	return false
}
