package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
)

// MAPI property streams inside an Outlook MSG compound file. The
// suffix encodes the property type: 001F is UTF-16LE text, 0102 is
// binary.
const (
	msgStreamTransportHeaders = "__substg1.0_007D001F"
	msgStreamSubject          = "__substg1.0_0037001F"
	msgStreamBodyText         = "__substg1.0_1000001F"
	msgStreamBodyHTML         = "__substg1.0_10130102"
)

// msgToEML converts an Outlook MSG container into an EML byte stream
// by pulling the transport headers and body out of the compound file.
func (sh *ServerHandler) msgToEML(msgPath string) ([]byte, error) {
	data, err := os.ReadFile(msgPath)
	if err != nil {
		return nil, fmt.Errorf("reading msg: %w", err)
	}

	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing msg container: %w", err)
	}

	var headers, subject, bodyText string
	var bodyHTML []byte
	for {
		entry, nextErr := doc.Next()
		if nextErr != nil {
			break
		}
		switch entry.Name {
		case msgStreamTransportHeaders:
			raw, _ := io.ReadAll(entry)
			headers = decodeUTF16LE(raw)
		case msgStreamSubject:
			raw, _ := io.ReadAll(entry)
			subject = decodeUTF16LE(raw)
		case msgStreamBodyText:
			raw, _ := io.ReadAll(entry)
			bodyText = decodeUTF16LE(raw)
		case msgStreamBodyHTML:
			bodyHTML, _ = io.ReadAll(entry)
		}
	}

	if headers == "" && subject == "" && bodyText == "" && len(bodyHTML) == 0 {
		return nil, fmt.Errorf("msg container has no message streams")
	}

	var eml bytes.Buffer
	if headers != "" {
		eml.WriteString(strings.TrimRight(headers, "\r\n"))
		eml.WriteString("\r\n")
	} else {
		fmt.Fprintf(&eml, "Subject: %s\r\n", strings.ReplaceAll(subject, "\n", " "))
	}

	if len(bodyHTML) > 0 {
		if !strings.Contains(strings.ToLower(headers), "content-type:") {
			eml.WriteString("Content-Type: text/html; charset=utf-8\r\n")
		}
		eml.WriteString("\r\n")
		eml.Write(bodyHTML)
	} else {
		if !strings.Contains(strings.ToLower(headers), "content-type:") {
			eml.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		}
		eml.WriteString("\r\n")
		eml.WriteString(bodyText)
	}

	return eml.Bytes(), nil
}

// decodeUTF16LE decodes a UTF-16 little-endian MAPI string stream,
// dropping any trailing NUL.
func decodeUTF16LE(raw []byte) string {
	if len(raw) < 2 {
		return ""
	}
	u16s := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u16s = append(u16s, binary.LittleEndian.Uint16(raw[i:i+2]))
	}
	runes := utf16.Decode(u16s)
	return strings.TrimRight(string(runes), "\x00")
}
