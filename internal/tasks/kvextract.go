package tasks

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
)

// Defaults applied when KVSettings fields are unset.
const (
	defaultKVContextChars = 4096
	defaultKVNumQueries   = 1
	defaultKVNumDemos     = 2
	defaultKVNumSamples   = 8
	defaultKVFormat       = "text"
)

// GenerateKVExtract synthesizes key-value extraction samples: a context of
// random UUID pairs serialized in the configured format, a few demonstration
// extractions, and a query whose target is the values of the queried keys.
// Demonstration and query keys never overlap. Deterministic for a given seed.
func GenerateKVExtract(cfg KVSettings, seed int64) ([]Sample, error) {
	if cfg.ContextChars <= 0 {
		cfg.ContextChars = defaultKVContextChars
	}
	if cfg.NumQueries <= 0 {
		cfg.NumQueries = defaultKVNumQueries
	}
	if cfg.NumDemos < 0 {
		cfg.NumDemos = defaultKVNumDemos
	}
	if cfg.NumSamples <= 0 {
		cfg.NumSamples = defaultKVNumSamples
	}
	if cfg.Format == "" {
		cfg.Format = defaultKVFormat
	}
	switch cfg.Format {
	case "json", "csv", "tsv", "text":
	default:
		return nil, fmt.Errorf("kv_extract: unsupported format %q", cfg.Format)
	}

	rng := rand.New(rand.NewSource(seed))
	samples := make([]Sample, 0, cfg.NumSamples)
	for i := 0; i < cfg.NumSamples; i++ {
		s, err := generateOne(rng, cfg)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

type kvPair struct{ k, v string }

func generateOne(rng *rand.Rand, cfg KVSettings) (Sample, error) {
	minPairs := cfg.NumQueries * (1 + cfg.NumDemos)
	pairs, context := growContext(rng, cfg.Format, cfg.ContextChars, minPairs)

	// Demo groups first, then the query, with no overlap.
	idx := rng.Perm(len(pairs))
	need := cfg.NumDemos*cfg.NumQueries + cfg.NumQueries
	if len(idx) < need {
		return Sample{}, fmt.Errorf("kv_extract: %d pairs cannot cover %d demo+query slots", len(pairs), need)
	}
	var demos [][]kvPair
	pos := 0
	for d := 0; d < cfg.NumDemos; d++ {
		group := make([]kvPair, 0, cfg.NumQueries)
		for q := 0; q < cfg.NumQueries; q++ {
			group = append(group, pairs[idx[pos]])
			pos++
		}
		demos = append(demos, group)
	}
	query := make([]kvPair, 0, cfg.NumQueries)
	for q := 0; q < cfg.NumQueries; q++ {
		query = append(query, pairs[idx[pos]])
		pos++
	}

	var b strings.Builder
	b.WriteString("Below is a context of key-value pairs:\n")
	b.WriteString(context)
	b.WriteString("\n\nExtract the values for the requested keys, comma-separated.\n")
	for _, g := range demos {
		b.WriteString("Keys: ")
		b.WriteString(joinKeys(g))
		b.WriteString("\nValues: ")
		b.WriteString(joinValues(g))
		b.WriteString("\n")
	}
	b.WriteString("Keys: ")
	b.WriteString(joinKeys(query))
	b.WriteString("\nValues:")

	return Sample{Input: b.String(), Target: joinValues(query)}, nil
}

// growContext appends unique pairs until the serialized context reaches at
// least targetChars and minPairs pairs exist.
func growContext(rng *rand.Rand, format string, targetChars, minPairs int) ([]kvPair, string) {
	seen := map[string]bool{}
	var pairs []kvPair
	var context string
	for {
		k, v := randomUUID(rng), randomUUID(rng)
		if seen[k] || seen[v] {
			continue
		}
		seen[k], seen[v] = true, true
		pairs = append(pairs, kvPair{k: k, v: v})
		context = buildContext(pairs, format)
		if len(context) >= targetChars && len(pairs) >= minPairs {
			return pairs, context
		}
	}
}

func buildContext(pairs []kvPair, format string) string {
	switch format {
	case "json":
		m := make(map[string]string, len(pairs))
		for _, p := range pairs {
			m[p.k] = p.v
		}
		b, _ := json.Marshal(m)
		return string(b)
	case "csv":
		return joinPairs(pairs, ",")
	case "tsv":
		return joinPairs(pairs, "\t")
	default: // text
		return joinPairs(pairs, " => ")
	}
}

func joinPairs(pairs []kvPair, sep string) string {
	lines := make([]string, len(pairs))
	for i, p := range pairs {
		lines[i] = p.k + sep + p.v
	}
	return strings.Join(lines, "\n")
}

func joinKeys(pairs []kvPair) string {
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.k
	}
	return strings.Join(keys, ", ")
}

func joinValues(pairs []kvPair) string {
	vals := make([]string, len(pairs))
	for i, p := range pairs {
		vals[i] = p.v
	}
	return strings.Join(vals, ", ")
}

// randomUUID renders a UUIDv4-shaped string from the task RNG so sample
// generation stays reproducible under a fixed seed.
func randomUUID(rng *rand.Rand) string {
	var u [16]byte
	rng.Read(u[:])
	u[6] = (u[6] & 0x0f) | 0x40
	u[8] = (u[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
}
