// SPDX-License-Identifier: MIT

// Package epg converts decoded schedule feeds into XMLTV documents.
package epg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// TV is the XMLTV root element.
type TV struct {
	XMLName       xml.Name    `xml:"tv"`
	GeneratorName string      `xml:"generator-info-name,attr"`
	GeneratorURL  string      `xml:"generator-info-url,attr"`
	Channels      []Channel   `xml:"channel"`
	Programmes    []Programme `xml:"programme"`
}

type Channel struct {
	ID          string `xml:"id,attr"`
	DisplayName string `xml:"display-name"`
}

type Programme struct {
	Start    string `xml:"start,attr"`
	Stop     string `xml:"stop,attr"`
	Channel  string `xml:"channel,attr"`
	Title    Title  `xml:"title"`
	SubTitle *Title `xml:"sub-title,omitempty"`
}

type Title struct {
	// Lang contains the language code for the title (optional).
	Lang string `xml:"lang,attr,omitempty"`
	// Value is the character data of the title element.
	Value string `xml:",chardata"`
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// Encode writes tv as indented XML with a declaration header.
func Encode(w io.Writer, tv *TV) error {
	if tv == nil {
		return fmt.Errorf("encode xmltv: nil document")
	}
	if _, err := io.WriteString(w, xmlHeader); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(tv); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode xmltv: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal returns the serialized document.
func Marshal(tv *TV) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, tv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
