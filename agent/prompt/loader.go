package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Ivabot/agent/contract"
)

var (
	//go:embed template/synth.txt
	synthRaw string

	//go:embed template/sales.txt
	salesRaw string

	//go:embed template/chat.txt
	chatRaw string
)

// RoleMarkers delimit turns inside the role-tagged templates. They double as
// stop sequences so a model cannot write the next turn itself.
var RoleMarkers = []string{"<|user|>", "<|system|>", "<|end|>"}

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Synth string
	Sales string
	Chat  string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Synth: strings.TrimSpace(synthRaw),
		Sales: strings.TrimSpace(salesRaw),
		Chat:  strings.TrimSpace(chatRaw),
	}
}

func (p PromptSet) Validate() error {
	switch {
	case p.Synth == "":
		return fmt.Errorf("%w: synth", contractx.ErrPromptMissing)
	case p.Sales == "":
		return fmt.Errorf("%w: sales", contractx.ErrPromptMissing)
	case p.Chat == "":
		return fmt.Errorf("%w: chat", contractx.ErrPromptMissing)
	}
	return nil
}
