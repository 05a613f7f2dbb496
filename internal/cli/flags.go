package cli

import (
	"github.com/spf13/pflag"

	"codeberg.org/snonux/ankiform/internal/compose"
	"codeberg.org/snonux/ankiform/internal/media"
	"codeberg.org/snonux/ankiform/internal/settings"
)

// Flags holds all command-line flag values
type Flags struct {
	// Global flags
	CfgFile   string
	Endpoint  string
	StorePath string
	LogLevel  string

	// Form flags (add, preview)
	Definition          string
	Sentence            string
	SentenceTranslation string
	ExampleSentences    string
	Notes               string
	SentenceAudio       string
	WordAudio           string
	Images              []string
	MemeMode            bool
	ModifySyntax        bool
	WordFromClipboard   bool

	// CREATE/SEARCH actions (add, preview)
	Generate            []string
	CreateWordAudio     bool
	CreateSentenceAudio bool
	CreateImage         bool
	SearchImage         bool

	// Command specific flags
	Check         bool
	CopyPreview   bool
	HistoryLimit  int
	ServerAddress string
	Language      string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		HistoryLimit: 20,
		Language:     "English",
	}
}

// addFormFlags registers the note form flags on fs.
func addFormFlags(fs *pflag.FlagSet, flags *Flags) {
	fs.StringVarP(&flags.Definition, "definition", "d", "", "Definition section")
	fs.StringVarP(&flags.Sentence, "sentence", "s", "", "Sentence section")
	fs.StringVarP(&flags.SentenceTranslation, "translation", "t", "", "Sentence translation section")
	fs.StringVarP(&flags.ExampleSentences, "examples", "e", "", "Example sentences section")
	fs.StringVarP(&flags.Notes, "notes", "n", "", "Notes section")
	fs.StringVar(&flags.SentenceAudio, "sentence-audio", "", "Sentence audio file")
	fs.StringVar(&flags.WordAudio, "word-audio", "", "Word audio file")
	fs.StringSliceVarP(&flags.Images, "image", "i", nil, "Image file (repeatable)")
	fs.BoolVar(&flags.MemeMode, "meme", false, "Turn on meme mode (preview annotation only)")
	fs.BoolVar(&flags.ModifySyntax, "modify-syntax", false, "Turn on modified syntax (preview annotation only)")
	fs.BoolVar(&flags.WordFromClipboard, "word-from-clipboard", false, "Read the word from the clipboard")

	fs.StringSliceVar(&flags.Generate, "generate", nil, "Generate sections with the assistant (e.g. definition,notes)")
	fs.BoolVar(&flags.CreateWordAudio, "create-word-audio", false, "Synthesize the word audio")
	fs.BoolVar(&flags.CreateSentenceAudio, "create-sentence-audio", false, "Synthesize the sentence audio")
	fs.BoolVar(&flags.CreateImage, "create-image", false, "Generate an illustration")
	fs.BoolVar(&flags.SearchImage, "search-image", false, "Search an image for the word")
	fs.StringVar(&flags.Language, "language", flags.Language, "Language of generated explanations")
}

// FormState builds the form from word and the form flags. Attachments are
// only opened when the note is submitted.
func (f *Flags) FormState(word string) compose.FormState {
	form := compose.FormState{
		TargetWord:          word,
		Definition:          f.Definition,
		Sentence:            f.Sentence,
		SentenceTranslation: f.SentenceTranslation,
		ExampleSentences:    f.ExampleSentences,
		Notes:               f.Notes,
		MemeMode:            f.MemeMode,
		ModifySyntax:        f.ModifySyntax,
	}
	if f.SentenceAudio != "" {
		form.SentenceAudio = media.FromPath(f.SentenceAudio)
	}
	if f.WordAudio != "" {
		form.WordAudio = media.FromPath(f.WordAudio)
	}
	form.AddImages(media.FromPaths(f.Images...)...)
	return form
}

// GenerateSections parses the --generate list.
func (f *Flags) GenerateSections() ([]settings.Section, error) {
	out := make([]settings.Section, 0, len(f.Generate))
	for _, id := range f.Generate {
		sec, err := settings.ParseSection(id)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, nil
}
