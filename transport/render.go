package transport

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FieldsToPairs decodes a POST fields wire string ("a=1&b=2") back into
// ordered pairs. Empty segments and segments without '=' are skipped.
func FieldsToPairs(fields string) []KV {
	var out []KV
	for _, seg := range strings.Split(fields, "&") {
		if seg == "" {
			continue
		}
		name, value, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		out = append(out, KV{Name: name, Value: value})
	}
	return out
}

// HeaderPairs returns the connection's live header list decoded into
// ordered pairs, splitting each entry at the first ':'.
func (c *Connection) HeaderPairs() []KV {
	if c.header == nil {
		return nil
	}
	return c.header.pairs()
}

type optionRenderer func(w io.Writer, c *Connection, ov OptionValue)

// Three option kinds get decoded forms; everything else renders as
// display name, tab, raw string value.
var optionRenderers = map[Option]optionRenderer{
	OptPostFields:    renderPostFields,
	OptHTTPHeader:    renderHeaderList,
	OptWriteData:     renderAddress,
	OptWriteFunction: renderAddress,
}

func renderPostFields(w io.Writer, _ *Connection, ov OptionValue) {
	fmt.Fprintf(w, "\t%s:\n", ov.Option.Name())
	for _, p := range FieldsToPairs(ov.Value) {
		fmt.Fprintf(w, "\t\t%s\t%s\n", p.Name, p.Value)
	}
}

func renderHeaderList(w io.Writer, c *Connection, ov OptionValue) {
	fmt.Fprintf(w, "\t%s:\n", ov.Option.Name())
	for _, p := range c.HeaderPairs() {
		fmt.Fprintf(w, "\t\t%s\t%s\n", p.Name, p.Value)
	}
}

func renderAddress(w io.Writer, _ *Connection, ov OptionValue) {
	addr, err := strconv.ParseUint(ov.Value, 10, 64)
	if err != nil {
		fmt.Fprintf(w, "\t%s\t%s\n", ov.Option.Name(), ov.Value)
		return
	}
	fmt.Fprintf(w, "\t%s\t%x\n", ov.Option.Name(), addr)
}

func renderDefault(w io.Writer, _ *Connection, ov OptionValue) {
	fmt.Fprintf(w, "\t%s\t%s\n", ov.Option.Name(), ov.Value)
}

// WriteOptions writes a human-readable report of every applied option,
// in registry iteration order.
func (c *Connection) WriteOptions(w io.Writer) {
	fmt.Fprintf(w, "connection %s\n", c.id)
	for _, ov := range c.opts.entries() {
		if _, known := optionNames[ov.Option]; !known {
			fmt.Fprint(w, "\tUNKNOWN\n")
			continue
		}
		render := optionRenderers[ov.Option]
		if render == nil {
			render = renderDefault
		}
		render(w, c, ov)
	}
}

func (c *Connection) String() string {
	var b strings.Builder
	c.WriteOptions(&b)
	return b.String()
}
