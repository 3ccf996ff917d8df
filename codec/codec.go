// Package codec implements the File Codec: parsing CONFIG.TXT into
// (entry -> value) pairs against a registry.Registry and re-serializing in
// canonical form. Serialization uses github.com/noxer/bytewriter for a
// fixed-capacity output region and aggregates per-entry repair notices with
// github.com/hashicorp/go-multierror.
package codec

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"

	"github.com/halfword/configvol/registry"
)

// MaxLineBytes bounds a single raw or rendered line (room for a long
// private key).
const MaxLineBytes = 2048

// MaxFileBytes bounds the total serialized content.
const MaxFileBytes = 8192

// Result is the outcome of one Normalize pass.
type Result struct {
	// Content is the canonical, serialized CONFIG.TXT bytes, one line per
	// registered entry in registration order.
	Content []byte
	// Repaired reports whether any entry was missing, failed validation, or
	// the source buffer looked invalid outright, or the output was
	// truncated.
	Repaired bool
	// Notices is non-nil when at least one entry needed repair or the
	// output was truncated; each element describes one such event. Safe
	// to log at warn level; never fatal.
	Notices *multierror.Error
}

// LooksLikeConfig reports whether buf's first bytes equal some registered
// entry's "LABEL=" prefix, the heuristic used to decide whether a buffer
// holds real CONFIG.TXT content versus host metadata or garbage.
func LooksLikeConfig(buf []byte, reg *registry.Registry) bool {
	for _, entry := range reg.Entries() {
		prefix := entry.Label + "="
		if len(buf) >= len(prefix) && string(buf[:len(prefix)]) == prefix {
			return true
		}
	}
	return false
}

// splitLines breaks source into at most maxLines raw lines, each truncated
// to MaxLineBytes-1 bytes, accepting both "\r\n" and "\n" terminators and stopping
// at a NUL byte or the end of the buffer.
func splitLines(source []byte, maxLines int) []string {
	lines := make([]string, 0, maxLines)
	i := 0
	for len(lines) < maxLines && i < len(source) {
		if source[i] == 0 {
			break
		}
		start := i
		for i < len(source) && source[i] != 0 && source[i] != '\n' {
			i++
		}

		if i >= len(source) || source[i] == 0 {
			if i > start {
				lines = append(lines, truncateLine(string(source[start:i])))
			}
			break
		}

		end := i // index of '\n'
		if end > start && source[end-1] == '\r' {
			end--
		}
		lines = append(lines, truncateLine(string(source[start:end])))
		i++ // skip '\n'
	}
	return lines
}

func truncateLine(line string) string {
	if len(line) > MaxLineBytes-1 {
		return line[:MaxLineBytes-1]
	}
	return line
}

// valueForLabel scans lines in order for the first one with prefix
// "label=", returning the substring after "=" up to an optional "\t#"
// comment marker. Embedded "=" in the value is left intact.
func valueForLabel(lines []string, label string) (string, bool) {
	prefix := label + "="
	for _, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		value := line[len(prefix):]
		if idx := strings.Index(value, "\t#"); idx >= 0 {
			value = value[:idx]
		}
		return value, true
	}
	return "", false
}

// resolveEntry resolves one registered entry against rawLines: find its
// line, validate, update, and render the canonical line, or fall back to
// the default and flag a notice.
func resolveEntry(entry registry.Entry, rawLines []string) (line string, notice string, repaired bool) {
	value, found := valueForLabel(rawLines, entry.Label)

	if found && (entry.Validate == nil || entry.Validate(value)) {
		if entry.Update != nil {
			entry.Update(value)
		}
		if entry.Print != nil {
			return entry.Print(MaxLineBytes), "", false
		}
		return entry.Label + "=" + value, "", false
	}

	if entry.Update != nil && entry.DefaultValue != "" {
		entry.Update(entry.DefaultValue)
	}

	if found {
		return entry.DefaultLine(), entry.Label + ": value failed validation, substituted default", true
	}
	return entry.DefaultLine(), entry.Label + ": no matching line, substituted default", true
}

// serialize concatenates, in registration order, each rendered line
// followed by its entry's stored comment, into a buffer of at most
// MaxFileBytes, truncating cleanly at a line boundary if capacity runs out.
func serialize(entries []registry.Entry, renderedLines []string) (content []byte, truncated bool) {
	fixed := make([]byte, MaxFileBytes)
	writer := bytewriter.New(fixed)
	written := 0

	for i, entry := range entries {
		line := renderedLines[i] + entry.Comment
		if written+len(line) > MaxFileBytes {
			truncated = true
			break
		}
		n, _ := writer.Write([]byte(line))
		written += n
	}
	return fixed[:written], truncated
}

// Normalize is the read side of the File Codec: it resolves every
// registered entry against source and re-serializes canonically. It does
// not touch the directory entry or FAT; that's the volume package's job,
// since it owns the Image Buffer. source is whichever candidate buffer the
// caller already selected, preferring a gatekeeper-accepted buffer over a
// raw host-landing pointer.
func Normalize(reg *registry.Registry, source []byte) Result {
	rawLines := splitLines(source, registry.MaxEntries)

	entries := reg.Entries()
	renderedLines := make([]string, len(entries))
	var notices *multierror.Error
	repaired := false

	for i, entry := range entries {
		line, notice, entryRepaired := resolveEntry(entry, rawLines)
		renderedLines[i] = line
		if entryRepaired {
			repaired = true
			notices = multierror.Append(notices, errString(notice))
		}
	}

	content, truncated := serialize(entries, renderedLines)
	if truncated {
		notices = multierror.Append(notices, errString("serialized content exceeded MaxFileBytes, truncated at a line boundary"))
	}

	return Result{Content: content, Repaired: repaired || truncated, Notices: notices}
}

type errString string

func (e errString) Error() string { return string(e) }
