// Package perfscript turns the text output of `perf script` into a pprof
// profile, one sample type per recorded event.
package perfscript

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/pprof/profile"
)

const pageSize = 4096

// Parser builds one profile from perf script output. A Parser is not safe
// for concurrent use; create one per Parse.
type Parser struct {
	prof      *profile.Profile
	functions map[string]*profile.Function
	locations map[string]*profile.Location
	mappings  map[string]*profile.Mapping
	ranges    map[string]*addressRange
	// stack key -> sample, to merge identical call chains
	samples map[string]*profile.Sample
	// event name -> index into prof.SampleType
	events map[string]int
}

type addressRange struct {
	min, max uint64
}

func New() *Parser {
	return &Parser{}
}

// Parse reads perf script output from r. Each sample is a header line
//
//	gatherbench 4711/4712 1234.5678:     250000 cycles:
//
// followed by indented frame lines
//
//	4b2f10 github.com/perfgo/gatherbench/aggregate.Gather[...]+0x30 (/usr/bin/gatherbench)
//
// and ends at the next header or a blank line.
func (p *Parser) Parse(r io.Reader) (*profile.Profile, error) {
	p.reset()

	var (
		stack []*profile.Location
		event string
		count int64
	)
	flush := func() {
		p.addSample(stack, event, count)
		stack = nil
	}

	scanner := bufio.NewScanner(r)
	// call chains of deep stacks exceed the default token size
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if isFrame(line) {
			if loc := p.location(line); loc != nil {
				stack = append(stack, loc)
			}
			continue
		}

		if !strings.Contains(line, ":") {
			continue
		}
		flush()
		var err error
		event, count, err = parseHeader(line)
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading perf script output: %w", err)
	}
	flush()

	p.finalizeMappings()
	return p.prof, nil
}

func (p *Parser) reset() {
	p.prof = &profile.Profile{
		TimeNanos:  time.Now().UnixNano(),
		PeriodType: &profile.ValueType{Type: "cpu", Unit: "nanoseconds"},
		Period:     1,
	}
	p.functions = make(map[string]*profile.Function)
	p.locations = make(map[string]*profile.Location)
	p.mappings = make(map[string]*profile.Mapping)
	p.ranges = make(map[string]*addressRange)
	p.samples = make(map[string]*profile.Sample)
	p.events = make(map[string]int)
}

func isFrame(line string) bool {
	return strings.HasPrefix(line, "\t") || strings.HasPrefix(line, " ")
}

// parseHeader returns the event and the period of a sample header. The last
// field is the event followed by a colon, the one before it the period.
func parseHeader(line string) (string, int64, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("invalid sample header: %q", line)
	}
	event := strings.TrimSuffix(fields[len(fields)-1], ":")
	count, err := strconv.ParseInt(fields[len(fields)-2], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid sample period in %q: %w", line, err)
	}
	return event, count, nil
}

// location returns the location of a frame line "addr symbol+off (dso)".
func (p *Parser) location(line string) *profile.Location {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil
	}

	// unparsable addresses are kept as 0
	addr, _ := strconv.ParseUint(fields[0], 16, 64)

	name := fields[1]
	if i := strings.LastIndex(name, "+0x"); i > 0 {
		name = name[:i]
	}

	var mapping *profile.Mapping
	for _, f := range fields[2:] {
		if strings.HasPrefix(f, "(") && strings.HasSuffix(f, ")") {
			file := strings.TrimSuffix(strings.TrimPrefix(f, "("), ")")
			mapping = p.mapping(file, addr)
			break
		}
	}

	key := name + "@" + strconv.FormatUint(addr, 16)
	if loc, ok := p.locations[key]; ok {
		return loc
	}
	loc := &profile.Location{
		ID:      uint64(len(p.prof.Location) + 1),
		Mapping: mapping,
		Address: addr,
		Line:    []profile.Line{{Function: p.function(name)}},
	}
	p.locations[key] = loc
	p.prof.Location = append(p.prof.Location, loc)
	return loc
}

func (p *Parser) function(name string) *profile.Function {
	if fn, ok := p.functions[name]; ok {
		return fn
	}
	fn := &profile.Function{
		ID:         uint64(len(p.prof.Function) + 1),
		Name:       name,
		SystemName: name,
	}
	p.functions[name] = fn
	p.prof.Function = append(p.prof.Function, fn)
	return fn
}

// mapping returns the mapping of file and widens its address range by addr.
func (p *Parser) mapping(file string, addr uint64) *profile.Mapping {
	m, ok := p.mappings[file]
	if !ok {
		m = &profile.Mapping{
			ID:   uint64(len(p.prof.Mapping) + 1),
			File: file,
		}
		p.mappings[file] = m
		p.prof.Mapping = append(p.prof.Mapping, m)
	}

	if addr != 0 {
		if r, ok := p.ranges[file]; !ok {
			p.ranges[file] = &addressRange{min: addr, max: addr}
		} else {
			r.min = min(r.min, addr)
			r.max = max(r.max, addr)
		}
	}
	return m
}

// finalizeMappings sets page aligned Start and Limit from the addresses
// seen, or the whole address space when none was.
func (p *Parser) finalizeMappings() {
	for file, m := range p.mappings {
		r, ok := p.ranges[file]
		if !ok {
			m.Start, m.Limit = 0, ^uint64(0)
			continue
		}
		m.Start = r.min / pageSize * pageSize
		m.Limit = (r.max + pageSize) / pageSize * pageSize
	}
}

func (p *Parser) addSample(stack []*profile.Location, event string, count int64) {
	if len(stack) == 0 || count == 0 {
		return
	}

	idx, ok := p.events[event]
	if !ok {
		idx = len(p.prof.SampleType)
		p.events[event] = idx
		p.prof.SampleType = append(p.prof.SampleType, &profile.ValueType{Type: event, Unit: "count"})
		for _, s := range p.prof.Sample {
			s.Value = append(s.Value, 0)
		}
	}

	key := stackKey(stack)
	if s, ok := p.samples[key]; ok {
		s.Value[idx] += count
		return
	}
	s := &profile.Sample{
		Location: stack,
		Value:    make([]int64, len(p.prof.SampleType)),
	}
	s.Value[idx] = count
	p.samples[key] = s
	p.prof.Sample = append(p.prof.Sample, s)
}

func stackKey(stack []*profile.Location) string {
	var b strings.Builder
	for _, loc := range stack {
		b.WriteString(strconv.FormatUint(loc.ID, 10))
		b.WriteByte(',')
	}
	return b.String()
}
