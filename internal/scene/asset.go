package scene

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/Versifine/citydrive/internal/physics"
)

var (
	ErrUnknownAsset = errors.New("unknown asset")
	ErrNoActor      = errors.New("asset has no actor")
)

// Actor is the spawn transform of the drivable embodiment.
type Actor struct {
	Position mgl64.Vec3
	Heading  float64
	Scale    float64
}

func (a Actor) Pose() physics.Pose {
	return physics.Pose{Position: a.Position, Heading: a.Heading}
}

// Asset is what the core consumes from a resolved scene file: world-space
// collidables and, optionally, one actor transform.
type Asset struct {
	Name      string
	Obstacles []physics.Shape
	// Passable names the shapes marked collide: false, such as roads the
	// actor drives on. They never reach the obstacle set.
	Passable []string
	Actor    *Actor
}

func (a *Asset) Kind() string {
	if a == nil {
		return ""
	}
	if a.Actor != nil {
		return "actor"
	}
	return "obstacles"
}

type Source interface {
	Resolve(ctx context.Context, name string) (*Asset, error)
}

// DirSource reads <dir>/<name>.yaml.
type DirSource struct {
	Dir string
}

func (s DirSource) Resolve(ctx context.Context, name string) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("asset %q: %w", name, ErrUnknownAsset)
	}

	path := filepath.Join(s.Dir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("asset %q: %w", name, ErrUnknownAsset)
		}
		return nil, fmt.Errorf("read asset %q: %w", name, err)
	}
	asset, err := ParseAsset(data)
	if err != nil {
		return nil, fmt.Errorf("parse asset %q: %w", name, err)
	}
	if asset.Name == "" {
		asset.Name = name
	}
	return asset, nil
}

// StaticSource serves prebuilt assets, mostly for tests and demos.
type StaticSource map[string]*Asset

func (s StaticSource) Resolve(ctx context.Context, name string) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	asset, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("asset %q: %w", name, ErrUnknownAsset)
	}
	return asset, nil
}

type assetFile struct {
	Name   string     `yaml:"name"`
	Boxes  []boxFile  `yaml:"boxes"`
	Meshes []meshFile `yaml:"meshes"`
	Actor  *actorFile `yaml:"actor"`
	Offset []float64  `yaml:"offset"`
}

type boxFile struct {
	Name    string    `yaml:"name"`
	Center  []float64 `yaml:"center"`
	Size    []float64 `yaml:"size"`
	Collide *bool     `yaml:"collide"`
}

type meshFile struct {
	Name      string        `yaml:"name"`
	Triangles [][][]float64 `yaml:"triangles"`
	Collide   *bool         `yaml:"collide"`
}

// collides defaults to true when the flag is absent.
func collides(flag *bool) bool {
	return flag == nil || *flag
}

type actorFile struct {
	Position []float64 `yaml:"position"`
	Heading  float64   `yaml:"heading"`
	Scale    float64   `yaml:"scale"`
}

// ParseAsset decodes the YAML scene description. Boxes are axis-aligned
// and given by center and full size; mesh triangles are three vertices.
// Shapes with collide: false are validated but left out of Obstacles.
// A top-level offset translates everything in the file.
func ParseAsset(data []byte) (*Asset, error) {
	var f assetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	offset := mgl64.Vec3{}
	if f.Offset != nil {
		v, err := toVec3(f.Offset)
		if err != nil {
			return nil, fmt.Errorf("offset: %w", err)
		}
		offset = v
	}

	asset := &Asset{Name: f.Name}
	for i, b := range f.Boxes {
		center, err := toVec3(b.Center)
		if err != nil {
			return nil, fmt.Errorf("box %d center: %w", i, err)
		}
		size, err := toVec3(b.Size)
		if err != nil {
			return nil, fmt.Errorf("box %d size: %w", i, err)
		}
		if size.X() < 0 || size.Y() < 0 || size.Z() < 0 {
			return nil, fmt.Errorf("box %d: negative size %v", i, size)
		}
		if !collides(b.Collide) {
			asset.Passable = append(asset.Passable, b.Name)
			continue
		}
		asset.Obstacles = append(asset.Obstacles, physics.BoxAt(center.Add(offset), size))
	}

	for i, m := range f.Meshes {
		tris := make([]physics.Triangle, 0, len(m.Triangles))
		for j, raw := range m.Triangles {
			if len(raw) != 3 {
				return nil, fmt.Errorf("mesh %d triangle %d: want 3 vertices, got %d", i, j, len(raw))
			}
			var verts [3]mgl64.Vec3
			for k := range verts {
				v, err := toVec3(raw[k])
				if err != nil {
					return nil, fmt.Errorf("mesh %d triangle %d vertex %d: %w", i, j, k, err)
				}
				verts[k] = v.Add(offset)
			}
			tris = append(tris, physics.Triangle{A: verts[0], B: verts[1], C: verts[2]})
		}
		if !collides(m.Collide) {
			asset.Passable = append(asset.Passable, m.Name)
			continue
		}
		if len(tris) > 0 {
			asset.Obstacles = append(asset.Obstacles, physics.NewMesh(m.Name, tris))
		}
	}

	if f.Actor != nil {
		pos, err := toVec3(f.Actor.Position)
		if err != nil {
			return nil, fmt.Errorf("actor position: %w", err)
		}
		scale := f.Actor.Scale
		if scale == 0 {
			scale = 1
		}
		asset.Actor = &Actor{Position: pos.Add(offset), Heading: f.Actor.Heading, Scale: scale}
	}
	return asset, nil
}

func toVec3(v []float64) (mgl64.Vec3, error) {
	if len(v) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("want 3 components, got %d", len(v))
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}
