package legacy

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshuapare/amcachekit/internal/diag"
	"github.com/joshuapare/amcachekit/internal/fieldconv"
	"github.com/joshuapare/amcachekit/internal/regread"
	"github.com/joshuapare/amcachekit/internal/timestamp"
	"github.com/joshuapare/amcachekit/pkg/types"
)

// decodeProgram builds one program record. The sub-key name is the program
// id that file records refer to.
func decodeProgram(k *regread.Key, sink *diag.Sink) (*types.LegacyProgram, error) {
	vals, err := k.Values()
	if err != nil {
		return nil, err
	}
	p := &types.LegacyProgram{
		ProgramID:          k.Name(),
		LastWriteTimestamp: timestamp.Normalize(k.LastWriteTime()),
	}
	for _, v := range vals {
		data := v.Data()
		switch v.Name() {
		case "0":
			p.ProgramName = data
		case "1":
			p.ProgramVersion = data
		case "2":
			p.VendorName = data
		case "3":
			p.LanguageCode = data
		case "5":
			err = setInt32(&p.UnknownDword5, data)
		case "6":
			p.InstallSource = data
		case "7":
			p.UninstallRegistryKey = data
		case "a":
			p.InstallDateEpochA = epoch(k, v, sink)
		case "b":
			p.InstallDateEpochB = epoch(k, v, sink)
		case "d":
			p.PathsList = data
		case "f":
			p.UninstallGUIDF = data
		case "10":
			p.UnknownGUID10 = data
		case "11":
			p.UninstallGUID11 = data
		case "12":
			p.UnknownGUID12 = data
		case "13":
			err = setInt32(&p.UnknownDword13, data)
		case "14":
			err = setInt32(&p.UnknownDword14, data)
		case "15":
			err = setInt32(&p.UnknownDword15, data)
		case "16":
			p.UnknownBytes16 = append([]byte(nil), v.Raw()...)
		case "17":
			p.UnknownQword17, err = fieldconv.Int64(data)
		case "18":
			err = setInt32(&p.UnknownDword18, data)
		case "Files":
			p.RawFiles = data
			p.FilesLinks, err = parseFileLinks(data)
		default:
			sink.UnknownField(k.Path(), v.Name())
		}
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", v.Name(), err)
		}
	}
	return p, nil
}

func setInt32(dst *int64, data string) error {
	n, err := fieldconv.Int32(data)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func epoch(k *regread.Key, v *regread.Value, sink *diag.Sink) *time.Time {
	t, ok := timestamp.FromUnixSeconds(v.Data())
	if !ok && v.Data() != "0" && v.Data() != "" {
		sink.Conversion(k.Path(), v.Name(), v.Data())
	}
	return timestamp.Ptr(t, ok)
}

// parseFileLinks splits the Files blob into volume@file pairs. The list ends
// at the first empty chunk.
func parseFileLinks(raw string) ([]types.FileLink, error) {
	var out []types.FileLink
	for _, chunk := range strings.Split(raw, " ") {
		if strings.TrimSpace(chunk) == "" {
			break
		}
		parts := strings.Split(chunk, "@")
		if len(parts) < 2 {
			return nil, fmt.Errorf("file link %q has no volume separator", chunk)
		}
		out = append(out, types.FileLink{VolumeGUID: parts[0], FileID: parts[1]})
	}
	return out, nil
}
