// Copyright (C) 2025 HappyCake Oy (dev@happycake.fi)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package uploads

import (
	"bytes"
	"errors"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// Client-facing image rejection texts, surfaced in the {errors:[...]}
// envelope of the reservation intent request.
var (
	ErrImageType = errors.New("Incorrect image file type")
	ErrImageFile = errors.New("Broken image file")
)

// MaxUploadBytes bounds the accepted upload size.
const MaxUploadBytes = 10 * 1024 * 1024

// maxWidth is the iPad Air display width the kitchen tablets use.
const maxWidth = 1024

// allowedExtensions maps accepted file extensions to encoders.
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
}

// ProcessUpload implements ArtifactStore.
//
// # Description
//
// Validates the file extension, decodes the image, downscales it to at
// most maxWidth (fit-inside, aspect preserved), re-encodes it and stores
// the result as <clientId>.<ext>. Re-encoding also discards any bytes a
// malicious upload may have smuggled past the image header.
//
// # Outputs
//
//   - string: The stored artifact name, e.g.
//     "eb71414e-2b0a-4e45-90da-334de41d25ff.png".
//   - error: ErrImageType for a disallowed extension, ErrImageFile when
//     the payload does not decode as an image.
func (s *Store) ProcessUpload(clientID, originalName string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrImageType
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", ErrImageFile
	}

	resized := fitWidth(src, maxWidth)

	var buf bytes.Buffer
	switch ext {
	case ".png":
		err = png.Encode(&buf, resized)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 90})
	case ".gif":
		err = gif.Encode(&buf, resized, nil)
	}
	if err != nil {
		return "", ErrImageFile
	}

	name := clientID + ext
	if err := s.save(name, buf.Bytes()); err != nil {
		return "", err
	}
	return name, nil
}

// fitWidth scales the image down to the given width, keeping the aspect
// ratio. Images already narrow enough are returned unchanged.
func fitWidth(src image.Image, width int) image.Image {
	bounds := src.Bounds()
	if bounds.Dx() <= width {
		return src
	}

	height := bounds.Dy() * width / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
