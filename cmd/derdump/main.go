// Command derdump parses a DER-encoded file and prints the structure of the
// contained data value as an indented tree.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"derlib.dev/asn1"
	"derlib.dev/asn1/der"
)

var (
	hexInput = flag.Bool("hex", false, "treat the input as hex-encoded text")
	maxBytes = flag.Int("max-bytes", 16, "maximum number of content bytes to print per value")
	verbose  = flag.Bool("v", false, "enable debug output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: derdump [flags] [file]\n\nReads DER from file (or stdin) and prints the data value tree.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}

	in := os.Stdin
	name := "stdin"
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot open input")
		}
		defer f.Close()
		in, name = f, flag.Arg(0)
	}
	data, err := io.ReadAll(in)
	if err != nil {
		logger.Fatal().Err(err).Str("file", name).Msg("cannot read input")
	}
	if *hexInput {
		s := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
				return -1
			}
			return r
		}, string(data))
		if data, err = hex.DecodeString(s); err != nil {
			logger.Fatal().Err(err).Msg("invalid hex input")
		}
	}
	logger.Debug().Int("bytes", len(data)).Str("file", name).Msg("parsing input")

	root, err := der.Parse(data)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse failed")
	}
	if err := dump(os.Stdout, root, 0); err != nil {
		logger.Fatal().Err(err).Msg("dump failed")
	}
}

// dump prints n and its descendants to w, one line per data value.
func dump(w io.Writer, n der.Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	if !n.Constructed() {
		data, err := n.Bytes()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s%s %s\n", indent, n.Identifier(), preview(n, data))
		return nil
	}
	fmt.Fprintf(w, "%s%s\n", indent, n.Identifier())
	it, err := n.Children()
	if err != nil {
		return err
	}
	for {
		child, ok := it.Next()
		if !ok {
			return nil
		}
		if err := dump(w, child, depth+1); err != nil {
			return err
		}
	}
}

// preview renders the content of a primitive data value. Known universal
// types are decoded; everything else is shown as (possibly truncated) hex.
func preview(n der.Node, data []byte) string {
	if n.Identifier().Class == asn1.ClassUniversal {
		switch n.Identifier().Number {
		case asn1.TagBoolean:
			if v, err := der.DecodeBoolean(n); err == nil {
				return fmt.Sprintf("%t", v)
			}
		case asn1.TagInteger:
			if v, err := der.DecodeInteger(n); err == nil {
				return v.String()
			}
		case asn1.TagNull:
			return "NULL"
		case asn1.TagOID:
			if v, err := der.DecodeObjectIdentifier(n); err == nil {
				return v.String()
			}
		case asn1.TagReal:
			if v, err := der.DecodeReal(n); err == nil {
				return fmt.Sprintf("%g", v)
			}
		case asn1.TagUTF8String, asn1.TagIA5String, asn1.TagPrintableString:
			if v, err := der.DecodeUTF8StringAs(n, n.Identifier()); err == nil {
				return fmt.Sprintf("%q", v)
			}
		}
	}
	if len(data) > *maxBytes {
		return fmt.Sprintf("% X … (%d bytes)", data[:*maxBytes], len(data))
	}
	return fmt.Sprintf("% X", data)
}
