package dashboard

import (
	"github.com/newthinker/polydash/internal/band"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/poller"
)

// ConsensusRows caps the consensus history table
const ConsensusRows = 20

// Wallets shows the monitored basket and its consensus history
type Wallets struct {
	c         *poller.Controller
	baskets   *poller.Slot[[]core.BasketWallet]
	consensus *poller.Slot[[]core.ConsensusSignal]
}

func NewWallets(d Deps) *Wallets {
	c := d.controller(PageWallets)
	return &Wallets{
		c:         c,
		baskets:   poller.Bind(c, "baskets", d.Source.Baskets),
		consensus: poller.Bind(c, "consensus", d.Source.Consensus),
	}
}

func (w *Wallets) Name() string                   { return PageWallets }
func (w *Wallets) Controller() *poller.Controller { return w.c }
func (w *Wallets) Model() any                     { return w.Build() }

// ConsensusRow is one banded consensus event
type ConsensusRow struct {
	core.ConsensusSignal
	Total int        `json:"total"`
	Level band.Level `json:"level"`
}

type WalletsModel struct {
	Wallets   []core.BasketWallet `json:"wallets"`
	Widget    ConsensusWidget     `json:"widget"`
	Consensus []ConsensusRow      `json:"consensus"`
	Resources map[string]Resource `json:"resources"`
}

func (w *Wallets) Build() WalletsModel {
	baskets := w.baskets.Snapshot()
	consensus := w.consensus.Snapshot()

	n := len(baskets.Data)
	events := consensus.Data
	if len(events) > ConsensusRows {
		events = events[:ConsensusRows]
	}
	rows := make([]ConsensusRow, len(events))
	for i, e := range events {
		rows[i] = ConsensusRow{
			ConsensusSignal: e,
			Total:           band.ConsensusTotal(n),
			Level:           band.Consensus(e.Wallets, n),
		}
	}

	wallets := baskets.Data
	if wallets == nil {
		wallets = []core.BasketWallet{}
	}
	return WalletsModel{
		Wallets:   wallets,
		Widget:    NewConsensusWidget(consensus.Data, n),
		Consensus: rows,
		Resources: map[string]Resource{
			"baskets":   resourceOf(baskets, n),
			"consensus": resourceOf(consensus, len(consensus.Data)),
		},
	}
}
