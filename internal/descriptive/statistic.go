package descriptive

import (
	"fmt"
	"strconv"
	"strings"

	"entrain/internal/services"
)

// Kind identifies one summary statistic.
type Kind uint8

const (
	KindMean Kind = iota
	KindStdDev
	KindVariance
	KindMax
	KindPercentile
	KindIQR
	KindMoment
	KindSkewness
	KindKurtosis
)

// Statistic is one requested statistic. Arg carries the percentile rank for
// KindPercentile and the moment order for KindMoment; other kinds ignore it.
type Statistic struct {
	Kind Kind
	Arg  float64
}

// Name returns the statistic's column label, matching its request token.
func (s Statistic) Name() string {
	switch s.Kind {
	case KindMean:
		return "mean"
	case KindStdDev:
		return "std"
	case KindVariance:
		return "variance"
	case KindMax:
		return "max"
	case KindPercentile:
		return "p" + strconv.FormatFloat(s.Arg, 'f', -1, 64)
	case KindIQR:
		return "iqr"
	case KindMoment:
		return "m" + strconv.FormatInt(int64(s.Arg), 10)
	case KindSkewness:
		return "skewness"
	case KindKurtosis:
		return "kurtosis"
	default:
		return "unknown"
	}
}

// ParseStatistics resolves request tokens into statistic descriptors at
// configuration time. Fixed names cover the common statistics, `p<rank>`
// requests a percentile and `m<order>` a central moment. Any malformed
// token fails the whole request: a statistics report never silently drops
// a requested column.
func ParseStatistics(tokens []string) ([]Statistic, error) {
	out := make([]Statistic, 0, len(tokens))
	for _, raw := range tokens {
		token := strings.ToLower(strings.TrimSpace(raw))
		stat, err := parseToken(token)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "statistics", "parse", err.Error(), nil)
		}
		out = append(out, stat)
	}
	return out, nil
}

func parseToken(token string) (Statistic, error) {
	switch token {
	case "":
		return Statistic{}, fmt.Errorf("empty statistic token")
	case "mean":
		return Statistic{Kind: KindMean}, nil
	case "std":
		return Statistic{Kind: KindStdDev}, nil
	case "variance":
		return Statistic{Kind: KindVariance}, nil
	case "max":
		return Statistic{Kind: KindMax}, nil
	case "iqr":
		return Statistic{Kind: KindIQR}, nil
	case "skewness":
		return Statistic{Kind: KindSkewness}, nil
	case "kurtosis":
		return Statistic{Kind: KindKurtosis}, nil
	}
	switch token[0] {
	case 'p':
		rank, err := strconv.ParseFloat(token[1:], 64)
		if err != nil || rank < 0 || rank > 100 {
			return Statistic{}, fmt.Errorf("percentile %q must be p<rank> with rank in [0, 100]", token)
		}
		return Statistic{Kind: KindPercentile, Arg: rank}, nil
	case 'm':
		order, err := strconv.Atoi(token[1:])
		if err != nil || order < 1 {
			return Statistic{}, fmt.Errorf("moment %q must be m<order> with a positive integer order", token)
		}
		return Statistic{Kind: KindMoment, Arg: float64(order)}, nil
	}
	return Statistic{}, fmt.Errorf("unknown statistic %q", token)
}
