// Package dump provides chunked, memory-mapped access to dump files and
// format detection from magic bytes.
package dump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dumpsleuth/pkg/model"
)

// HeaderSize is how many leading bytes format detection inspects.
const HeaderSize = 4096

// signatureRule maps a magic prefix to a dump format.
type signatureRule struct {
	magic  []byte
	format model.DumpFormat
	name   string
}

// Ordered: first match wins.
var signatureRules = []signatureRule{
	{[]byte("MDMP"), model.FormatWindowsMinidump, "minidump"},
	{[]byte("PAGEDU64"), model.FormatFullHeapDump, "dmp64"},
	{[]byte("PAGEDUMP"), model.FormatFullHeapDump, "dmp32"},
	{[]byte("JAVA PROFILE"), model.FormatFullHeapDump, "hprof"},
	{[]byte("HIBR"), model.FormatVmSnapshot, "hibernation"},
	{[]byte("EMF"), model.FormatVmSnapshot, "vmware"},
	{[]byte{0x7f, 'E', 'L', 'F'}, model.FormatUnixCore, "elf_core"},
}

// Mach-O magic values, both endiannesses, 32- and 64-bit.
var machOMagics = [][]byte{
	{0xfe, 0xed, 0xfa, 0xce},
	{0xce, 0xfa, 0xed, 0xfe},
	{0xfe, 0xed, 0xfa, 0xcf},
	{0xcf, 0xfa, 0xed, 0xfe},
}

// rawMemoryMinSize is the smallest file plausibly holding a raw memory
// image when no signature matches.
const rawMemoryMinSize = 1 << 20

// Detection is the outcome of format sniffing. Detection never fails hard:
// Unknown is a valid, usable result and extractors still run against it,
// just with reduced structural confidence.
type Detection struct {
	Format    model.DumpFormat
	Metadata  map[string]string
	Truncated bool
}

// Detect classifies a dump from its leading bytes and file size.
func Detect(header []byte, fileSize int64) Detection {
	det := Detection{
		Format:   model.FormatUnknown,
		Metadata: make(map[string]string),
	}

	for _, rule := range signatureRules {
		if bytes.HasPrefix(header, rule.magic) {
			det.Format = rule.format
			det.Metadata["signature"] = rule.name
			parseFormatMetadata(&det, rule.name, header, fileSize)
			return det
		}
	}

	for _, magic := range machOMagics {
		if bytes.HasPrefix(header, magic) {
			det.Format = model.FormatUnixCore
			det.Metadata["signature"] = "macho_core"
			return det
		}
	}

	if plausibleRawMemory(header, fileSize) {
		det.Format = model.FormatRawMemory
	}
	return det
}

// plausibleRawMemory guesses whether an unsignatured file is a raw memory
// image: large, page-aligned or with non-degenerate byte entropy.
func plausibleRawMemory(header []byte, fileSize int64) bool {
	if fileSize < rawMemoryMinSize {
		return false
	}
	if fileSize%4096 == 0 {
		return true
	}
	return headerEntropy(header) >= 1.0
}

func headerEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	total := float64(len(data))
	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func parseFormatMetadata(det *Detection, name string, header []byte, fileSize int64) {
	switch name {
	case "minidump":
		parseMinidumpHeader(det, header, fileSize)
	case "elf_core":
		parseELFIdent(det, header)
	}
}

// minidumpHeaderSize covers signature, version, stream count, stream
// directory RVA, checksum, timestamp, and flags.
const minidumpHeaderSize = 32

// minidumpStreamDirEntrySize is the size of one MINIDUMP_DIRECTORY entry.
const minidumpStreamDirEntrySize = 12

// parseMinidumpHeader extracts MINIDUMP_HEADER fields and checks the
// declared stream directory against the actual file size. A directory that
// extends past EOF means the dump is truncated; analysis proceeds on the
// readable prefix.
func parseMinidumpHeader(det *Detection, header []byte, fileSize int64) {
	if len(header) < minidumpHeaderSize || fileSize < minidumpHeaderSize {
		det.Truncated = true
		return
	}

	version := binary.LittleEndian.Uint32(header[4:8])
	streamCount := binary.LittleEndian.Uint32(header[8:12])
	streamRVA := binary.LittleEndian.Uint32(header[12:16])
	timestamp := binary.LittleEndian.Uint32(header[20:24])
	flags := binary.LittleEndian.Uint32(header[24:28])

	det.Metadata["version"] = fmt.Sprintf("%d", version&0xffff)
	det.Metadata["stream_count"] = fmt.Sprintf("%d", streamCount)
	det.Metadata["timestamp"] = fmt.Sprintf("%d", timestamp)
	det.Metadata["flags"] = fmt.Sprintf("0x%x", flags)

	declared := int64(streamRVA) + int64(streamCount)*minidumpStreamDirEntrySize
	if declared > fileSize {
		det.Truncated = true
	}
}

// parseELFIdent extracts class and endianness from the ELF ident bytes.
func parseELFIdent(det *Detection, header []byte) {
	if len(header) < 6 {
		det.Truncated = true
		return
	}
	switch header[4] {
	case 2:
		det.Metadata["arch"] = "64-bit"
	case 1:
		det.Metadata["arch"] = "32-bit"
	}
	switch header[5] {
	case 1:
		det.Metadata["endianness"] = "little"
	case 2:
		det.Metadata["endianness"] = "big"
	}
}
