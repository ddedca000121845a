package store

import (
	"slices"

	"github.com/mcoot/aiventure/internal/model"
)

// AppendLab returns a copy of p with lab added at the end of its labs.
// A nil player stays nil.
func AppendLab(p *model.Player, lab model.Lab) *model.Player {
	if p == nil {
		return nil
	}
	next := *p
	next.Labs = append(slices.Clip(p.Labs), lab)
	return &next
}

// AppendModel returns a copy of l with m added at the end of its models.
// A nil lab stays nil.
func AppendModel(l *model.Lab, m model.AIModel) *model.Lab {
	if l == nil {
		return nil
	}
	next := *l
	next.Models = append(slices.Clip(l.Models), m)
	return &next
}

// WithFunds returns a copy of p whose funds are exactly funds
func WithFunds(p *model.Player, funds float64) *model.Player {
	if p == nil {
		return nil
	}
	next := *p
	next.Funds = funds
	return &next
}

// ReplaceLab returns a copy of p with the nested lab of the same id swapped
// for lab. When p holds no such lab it is returned unchanged.
func ReplaceLab(p *model.Player, lab model.Lab) *model.Player {
	i := p.FindLab(lab.ID)
	if i < 0 {
		return p
	}
	next := *p
	next.Labs = slices.Clone(p.Labs)
	next.Labs[i] = lab
	return &next
}
