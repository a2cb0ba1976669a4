package dfxml

import (
	"encoding/xml"
	"io"
	"iter"
)

// ReadFileObjects decodes the file objects of a DFXML document, skipping
// every other element.
func ReadFileObjects(r io.Reader) ([]FileObject, error) {
	var fileObjects []FileObject
	for fo, err := range FileObjects(r) {
		if err != nil {
			return nil, err
		}
		fileObjects = append(fileObjects, fo)
	}
	return fileObjects, nil
}

// FileObjects returns an iterator over the file objects of a DFXML document.
// The iteration stops at the first decoding error.
func FileObjects(r io.Reader) iter.Seq2[FileObject, error] {
	return func(yield func(FileObject, error) bool) {
		dec := xml.NewDecoder(r)

		for {
			tok, err := dec.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(FileObject{}, err)
				return
			}

			startElem, ok := tok.(xml.StartElement)
			if !ok || startElem.Name.Local != "fileobject" {
				continue
			}

			var fo FileObject
			if err := dec.DecodeElement(&fo, &startElem); err != nil {
				yield(FileObject{}, err)
				return
			}
			if !yield(fo, nil) {
				return
			}
		}
	}
}
