package model

import (
	"fmt"
	"math"
	"os"

	"github.com/Faultbox/l2drt/pkg/moc"
)

// LoadOptions selects the pools decoded data is allocated from.
type LoadOptions struct {
	Main    moc.Allocator // model-lifetime buffers; default moc.Heap
	Scratch moc.Allocator // transient decode buffers, cleared after the load; default moc.Heap
}

// paramDefSet is the wire wrapper around the parameter list.
type paramDefSet struct {
	List []*ParamDef
}

var registry = moc.Registry{
	moc.ClassParamID: func(r *moc.Reader) any {
		return ParamID(r.Intern(r.ReadString()))
	},
	moc.ClassBaseDataID: func(r *moc.Reader) any {
		return BaseDataID(r.Intern(r.ReadString()))
	},
	moc.ClassPartsDataID: func(r *moc.Reader) any {
		return PartsDataID(r.Intern(r.ReadString()))
	},
	moc.ClassDrawDataID: func(r *moc.Reader) any {
		return DrawDataID(r.Intern(r.ReadString()))
	},
	moc.ClassModelImpl:       decodeModel,
	moc.ClassParamDefSet:     decodeParamDefSet,
	moc.ClassParamDefFloat:   decodeParamDef,
	moc.ClassPartsData:       decodePartsData,
	moc.ClassAvatarPartsItem: decodeAvatarParts,
	moc.ClassPivotManager:    decodePivotManager,
	moc.ClassParamPivots:     decodeParamPivots,
	moc.ClassAffine:          decodeAffine,
	moc.ClassAffineEnt:       decodeAffineEnt,
	moc.ClassBoxGrid:         decodeBoxGrid,
	moc.ClassTexture:         decodeTexture,
}

// Load decodes a model from a fully resident buffer.
func Load(data []byte) (*Model, error) {
	return LoadWithOptions(data, LoadOptions{})
}

// LoadFile reads and decodes a model file.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return m, nil
}

// LoadWithOptions decodes a model using the given pools. On error no model
// is returned.
func LoadWithOptions(data []byte, opts LoadOptions) (*Model, error) {
	r, err := moc.NewReader(data, registry)
	if err != nil {
		return nil, err
	}
	r.SetAllocators(opts.Main, opts.Scratch)
	defer r.Scratch().Clear()

	root, err := r.ReadRoot()
	if err != nil {
		return nil, err
	}
	m, ok := root.(*Model)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrUnexpectedRoot, root)
	}
	h := r.Header()
	m.Version = h.Version
	m.LittleEndian = h.LittleEndian
	if err := m.Prepare(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeModel(r *moc.Reader) any {
	m := &Model{}
	if set := moc.Expect[*paramDefSet](r, "paramDefSet"); set != nil {
		m.Params = set.List
	}
	m.Parts = moc.ExpectList[*PartsData](r, "partsDataList")
	m.CanvasWidth = int(r.ReadInt())
	m.CanvasHeight = int(r.ReadInt())
	if r.Version() >= moc.VersionAvatarParts {
		m.AvatarParts = moc.ExpectList[*AvatarPartsItem](r, "avatarPartsItemList")
	}
	return m
}

func decodeParamDefSet(r *moc.Reader) any {
	return &paramDefSet{List: moc.ExpectList[*ParamDef](r, "paramDefList")}
}

func decodeParamDef(r *moc.Reader) any {
	p := &ParamDef{}
	p.Min = r.ReadFloat()
	p.Max = r.ReadFloat()
	p.Default = r.ReadFloat()
	p.ID = moc.Expect[ParamID](r, "paramID")
	return p
}

func decodePartsData(r *moc.Reader) any {
	p := &PartsData{}
	p.Locked = r.ReadBit()
	p.Visible = r.ReadBit()
	p.ID = moc.Expect[PartsDataID](r, "partsID")
	p.BaseData = moc.ExpectList[*BaseData](r, "baseDataList")
	p.DrawData = moc.ExpectList[*DrawData](r, "drawDataList")
	return p
}

func decodeAvatarParts(r *moc.Reader) any {
	a := &AvatarPartsItem{}
	a.PartsID = moc.Expect[PartsDataID](r, "partsID")
	a.BaseData = moc.ExpectList[*BaseData](r, "baseDataList")
	a.DrawData = moc.ExpectList[*DrawData](r, "drawDataList")
	return a
}

func decodePivotManager(r *moc.Reader) any {
	return &PivotManager{Params: moc.ExpectList[*ParamPivots](r, "paramPivotTable")}
}

func decodeParamPivots(r *moc.Reader) any {
	p := &ParamPivots{slot: -1}
	p.ParamID = moc.Expect[ParamID](r, "paramID")
	count := int(r.ReadInt())
	p.Values = moc.Expect[[]float32](r, "pivotValue")
	if r.Err() != nil {
		return nil
	}
	if count < 1 {
		r.Fail(fmt.Errorf("parameter %q: %w", p.ParamID, ErrPivotTableDegenerate))
		return nil
	}
	if len(p.Values) != count {
		r.Fail(invalidf("parameter %q: pivot count %d, %d values", p.ParamID, count, len(p.Values)))
		return nil
	}
	return p
}

func decodeBaseCommon(r *moc.Reader, b *BaseData) {
	b.ID = moc.Expect[BaseDataID](r, "baseDataID")
	b.TargetID = moc.Expect[BaseDataID](r, "targetBaseDataID")
	b.Pivots = moc.Expect[*PivotManager](r, "pivotManager")
	if r.Version() >= moc.VersionSDK2 {
		b.PivotOpacity = moc.Expect[[]float32](r, "pivotOpacity")
	}
}

func decodeAffine(r *moc.Reader) any {
	b := &BaseData{Kind: BaseAffine}
	decodeBaseCommon(r, b)
	b.Affines = moc.ExpectList[*AffineEnt](r, "affines")
	return b
}

func decodeAffineEnt(r *moc.Reader) any {
	a := &AffineEnt{}
	a.OriginX = r.ReadFloat()
	a.OriginY = r.ReadFloat()
	a.ScaleX = r.ReadFloat()
	a.ScaleY = r.ReadFloat()
	a.RotateDeg = r.ReadFloat()
	if r.Version() >= moc.VersionSDK2 {
		a.ReflectX = r.ReadBit()
		a.ReflectY = r.ReadBit()
	}
	return a
}

func decodeBoxGrid(r *moc.Reader) any {
	b := &BaseData{Kind: BaseBoxGrid}
	decodeBaseCommon(r, b)
	b.Col = int(r.ReadInt())
	b.Row = int(r.ReadInt())
	b.GridPoints = moc.ExpectList[[]float32](r, "pivotPoints")
	return b
}

func decodeTexture(r *moc.Reader) any {
	d := &DrawData{Kind: DrawTexture}
	d.ID = moc.Expect[DrawDataID](r, "drawDataID")
	d.TargetID = moc.Expect[BaseDataID](r, "targetBaseDataID")
	d.Pivots = moc.Expect[*PivotManager](r, "pivotManager")
	d.AverageDrawOrder = r.ReadInt()
	d.PivotDrawOrder = persistInt32s(r, moc.Expect[[]int32](r, "pivotDrawOrder"))
	if r.Version() >= moc.VersionOpacity {
		d.PivotOpacity = moc.Expect[[]float32](r, "pivotOpacity")
	}
	if r.Version() >= moc.VersionSDK2 {
		d.ClipID = moc.Expect[string](r, "clipID")
	}

	d.TextureNo = int(r.ReadInt())
	d.NumPts = int(r.ReadInt())
	d.NumPolygons = int(r.ReadInt())
	d.Indices = narrowIndices(r, moc.Expect[[]int32](r, "indexArray"))
	d.PivotPoints = moc.ExpectList[[]float32](r, "pivotPoints")
	d.UVs = moc.Expect[[]float32](r, "uvmap")
	if r.Version() >= moc.VersionTextureOption {
		d.OptionFlag = r.ReadInt()
	}
	if r.Version() >= moc.VersionSDK21 {
		d.Culling = r.ReadBit()
	}
	return d
}

// persistInt32s copies a scratch int array into the main pool.
func persistInt32s(r *moc.Reader, src []int32) []int32 {
	if src == nil {
		return nil
	}
	dst := r.Main().Int32s(len(src))
	copy(dst, src)
	return dst
}

// narrowIndices converts a scratch int32 index array into uint16 indices
// in the main pool.
func narrowIndices(r *moc.Reader, src []int32) []uint16 {
	if src == nil {
		return nil
	}
	dst := r.Main().Uint16s(len(src))
	for i, v := range src {
		if v < 0 || v > math.MaxUint16 {
			r.Fail(invalidf("index %d out of range at %d", v, i))
			return nil
		}
		dst[i] = uint16(v)
	}
	return dst
}
