package imgdiff

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

// DiffExtension is the extension of stored highlight rasters
const DiffExtension = ".png"

// pngEncoder is fixed so that hashing a raster is stable across runs
var pngEncoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// HashBytes returns the lowercase hex MD5 digest of data
func HashBytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// HashFile returns the lowercase hex MD5 digest of the file content
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", newOpenFileError(path, err)
	}
	defer file.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", newReadFileError(path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// EncodePNG encodes img with the canonical encoder used for hashing
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, img); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// HashImage returns the digest of the canonical PNG encoding of img
func HashImage(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", newEncodeImageError("raster", err)
	}

	return HashBytes(data), nil
}

// StoredName returns the content-addressed filename for a source file:
// its digest followed by the original extension.
func StoredName(digest, sourcePath string) string {
	return digest + filepath.Ext(sourcePath)
}

// artifact is a pending report output: either a file to copy or encoded bytes
type artifact struct {
	source string
	data   []byte
}

func fileArtifact(path string) artifact {
	return artifact{source: path}
}

func rasterArtifact(data []byte) artifact {
	return artifact{data: data}
}
