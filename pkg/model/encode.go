package model

import (
	"github.com/Faultbox/l2drt/pkg/moc"
)

// Encode serializes m. Fields introduced after h.Version are omitted.
func Encode(m *Model, h moc.Header) ([]byte, error) {
	return moc.Encode(h, m)
}

func anyList[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func (*Model) MOCClass() int { return moc.ClassModelImpl }

func (m *Model) EncodeMOC(w *moc.Writer) {
	w.WriteObject(&paramDefSet{List: m.Params})
	w.WriteObject(anyList(m.Parts))
	w.WriteInt(int32(m.CanvasWidth))
	w.WriteInt(int32(m.CanvasHeight))
	if w.Version() >= moc.VersionAvatarParts {
		w.WriteObject(anyList(m.AvatarParts))
	}
}

func (*paramDefSet) MOCClass() int { return moc.ClassParamDefSet }

func (s *paramDefSet) EncodeMOC(w *moc.Writer) {
	w.WriteObject(anyList(s.List))
}

func (*ParamDef) MOCClass() int { return moc.ClassParamDefFloat }

func (p *ParamDef) EncodeMOC(w *moc.Writer) {
	w.WriteFloat(p.Min)
	w.WriteFloat(p.Max)
	w.WriteFloat(p.Default)
	w.WriteObject(p.ID)
}

func (*PartsData) MOCClass() int { return moc.ClassPartsData }

func (p *PartsData) EncodeMOC(w *moc.Writer) {
	w.WriteBit(p.Locked)
	w.WriteBit(p.Visible)
	w.WriteObject(p.ID)
	w.WriteObject(anyList(p.BaseData))
	w.WriteObject(anyList(p.DrawData))
}

func (*AvatarPartsItem) MOCClass() int { return moc.ClassAvatarPartsItem }

func (a *AvatarPartsItem) EncodeMOC(w *moc.Writer) {
	w.WriteObject(a.PartsID)
	w.WriteObject(anyList(a.BaseData))
	w.WriteObject(anyList(a.DrawData))
}

func (*PivotManager) MOCClass() int { return moc.ClassPivotManager }

func (pm *PivotManager) EncodeMOC(w *moc.Writer) {
	w.WriteObject(anyList(pm.Params))
}

func (*ParamPivots) MOCClass() int { return moc.ClassParamPivots }

func (p *ParamPivots) EncodeMOC(w *moc.Writer) {
	w.WriteObject(p.ParamID)
	w.WriteInt(int32(len(p.Values)))
	w.WriteObject(p.Values)
}

func (b *BaseData) MOCClass() int {
	if b.Kind == BaseBoxGrid {
		return moc.ClassBoxGrid
	}
	return moc.ClassAffine
}

func (b *BaseData) EncodeMOC(w *moc.Writer) {
	w.WriteObject(b.ID)
	w.WriteObject(b.TargetID)
	w.WriteObject(b.Pivots)
	if w.Version() >= moc.VersionSDK2 {
		w.WriteObject(nilIfEmpty(b.PivotOpacity))
	}
	switch b.Kind {
	case BaseBoxGrid:
		w.WriteInt(int32(b.Col))
		w.WriteInt(int32(b.Row))
		w.WriteObject(anyList(b.GridPoints))
	default:
		w.WriteObject(anyList(b.Affines))
	}
}

func (*AffineEnt) MOCClass() int { return moc.ClassAffineEnt }

func (a *AffineEnt) EncodeMOC(w *moc.Writer) {
	w.WriteFloat(a.OriginX)
	w.WriteFloat(a.OriginY)
	w.WriteFloat(a.ScaleX)
	w.WriteFloat(a.ScaleY)
	w.WriteFloat(a.RotateDeg)
	if w.Version() >= moc.VersionSDK2 {
		w.WriteBit(a.ReflectX)
		w.WriteBit(a.ReflectY)
	}
}

func (*DrawData) MOCClass() int { return moc.ClassTexture }

func (d *DrawData) EncodeMOC(w *moc.Writer) {
	w.WriteObject(d.ID)
	w.WriteObject(d.TargetID)
	w.WriteObject(d.Pivots)
	w.WriteInt(d.AverageDrawOrder)
	w.WriteObject(d.PivotDrawOrder)
	if w.Version() >= moc.VersionOpacity {
		w.WriteObject(nilIfEmpty(d.PivotOpacity))
	}
	if w.Version() >= moc.VersionSDK2 {
		if d.ClipID == "" {
			w.WriteObject(nil)
		} else {
			w.WriteObject(d.ClipID)
		}
	}
	w.WriteInt(int32(d.TextureNo))
	w.WriteInt(int32(d.NumPts))
	w.WriteInt(int32(d.NumPolygons))
	w.WriteObject(d.Indices)
	w.WriteObject(anyList(d.PivotPoints))
	w.WriteObject(d.UVs)
	if w.Version() >= moc.VersionTextureOption {
		w.WriteInt(d.OptionFlag)
	}
	if w.Version() >= moc.VersionSDK21 {
		w.WriteBit(d.Culling)
	}
}

func nilIfEmpty(s []float32) any {
	if len(s) == 0 {
		return nil
	}
	return s
}
