package dfxml

import (
	"encoding/xml"
	"time"

	"github.com/ostafen/zipsniff/pkg/sysinfo"
)

const XmlOutputVersion = "1.0"

var DefaultMetadata = Metadata{
	Xmlns:    "http://www.forensicswiki.org/wiki/Category:Digital_Forensics_XML",
	XmlnsXsi: "http://www.w3.org/2001/XMLSchema-instance",
	XmlnsDC:  "http://purl.org/dc/elements/1.1/",
	Type:     "Media Type Report",
}

// DFXMLHeader holds the elements preceding the file objects of a DFXML document.
type DFXMLHeader struct {
	XmlOutput string   // The version of the DFXML XML schema, written as an attribute of the root element.
	Metadata  Metadata `xml:"metadata"`
	Creator   Creator  `xml:"creator"`
	Source    Source   `xml:"source"`
}

// Metadata contains various metadata attributes for the DFXML document.
type Metadata struct {
	Xmlns    string `xml:"xmlns,attr"`     // XML Namespace for the DFXML schema.
	XmlnsXsi string `xml:"xmlns:xsi,attr"` // XML Namespace for XML Schema Instance.
	XmlnsDC  string `xml:"xmlns:dc,attr"`  // XML Namespace for Dublin Core.
	Type     string `xml:"dc:type"`        // The type of the DFXML document.
}

// Creator describes the software and environment used to generate the DFXML.
type Creator struct {
	Package              string  `xml:"package"`
	Version              string  `xml:"version"`
	CommandLine          string  `xml:"command_line,omitempty"`
	ExecutionEnvironment ExecEnv `xml:"execution_environment"`
}

// ExecEnv provides information about the operating system and host where the DFXML was created.
type ExecEnv struct {
	OS      string `xml:"os_sysname"`
	Release string `xml:"os_release"`
	Version string `xml:"os_version"`
	Host    string `xml:"host"`
	Arch    string `xml:"arch"`
	UID     int    `xml:"uid"`
	Start   string `xml:"start_time"`
}

// Source describes the budgets the inputs were classified with.
type Source struct {
	Mode              string `xml:"mode"`
	MarkLimit         int    `xml:"mark_limit"`
	MaxEntries        int    `xml:"max_entries"`
	MaxContentSize    int    `xml:"max_content_size"`
	MaxCompressedSize int64  `xml:"max_compressed_size"`
	MaxDrainSize      int64  `xml:"max_drain_size"`
}

// FileObject is the classification of a single input.
type FileObject struct {
	XMLName        xml.Name       `xml:"fileobject"`
	Filename       string         `xml:"filename"`
	FileSize       uint64         `xml:"filesize"`
	MediaType      string         `xml:"media_type"`
	Classification Classification `xml:"classification"`
}

// Classification records how the media type of a file object was determined.
type Classification struct {
	State        string `xml:"state,attr"`
	Strategy     string `xml:"strategy,attr"`
	Definitive   bool   `xml:"definitive,attr"`
	Entries      int    `xml:"entries"`
	BytesScanned int64  `xml:"bytes_scanned"`
	Error        string `xml:"error,omitempty"`
}

// GetExecEnv retrieves runtime information to populate the ExecEnv struct.
func GetExecEnv() ExecEnv {
	sinfo := sysinfo.Stat()

	return ExecEnv{
		OS:      sinfo.Name,
		Release: sinfo.Release,
		Version: sinfo.Version,
		Host:    sinfo.Host,
		Arch:    sinfo.Arch,
		UID:     sinfo.UID,
		Start:   time.Now().UTC().Format(time.RFC3339),
	}
}
