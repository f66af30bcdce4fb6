package scene

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/citydrive/internal/physics"
)

const cityYAML = `name: city
offset: [0, 0, -10]
boxes:
  - name: tower
    center: [0, 5, 0]
    size: [4, 10, 4]
meshes:
  - name: ramp
    triangles:
      - [[-1, 0, 5], [1, 0, 5], [1, 2, 5]]
`

const carYAML = `actor:
  position: [-2, 0, 10]
  heading: 0.5
  scale: 0.5
`

func writeAsset(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
}

func TestObstacleSet_AppendOnly(t *testing.T) {
	set := NewObstacleSet()
	if set.Len() != 0 || len(set.Shapes()) != 0 {
		t.Fatal("new set should be empty")
	}

	a := physics.BoxAt(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	b := physics.BoxAt(mgl64.Vec3{5, 0, 0}, mgl64.Vec3{1, 1, 1})
	if n := set.Add(a, nil); n != 1 {
		t.Fatalf("Add() = %d, want 1 (nil skipped)", n)
	}
	before := set.Shapes()
	set.Add(b)

	if len(before) != 1 {
		t.Fatalf("earlier snapshot changed length to %d", len(before))
	}
	shapes := set.Shapes()
	if len(shapes) != 2 || shapes[0] != physics.Shape(a) || shapes[1] != physics.Shape(b) {
		t.Fatalf("shapes = %v, want registration order", shapes)
	}

	var nilSet *ObstacleSet
	if nilSet.Len() != 0 || nilSet.Shapes() != nil {
		t.Fatal("nil set should behave as empty")
	}
}

func TestObstacleSet_ConcurrentAddAndRead(t *testing.T) {
	set := NewObstacleSet()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				set.Add(physics.BoxAt(mgl64.Vec3{float64(j), 0, 0}, mgl64.Vec3{1, 1, 1}))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = len(set.Shapes())
			}
		}()
	}
	wg.Wait()
	if set.Len() != 200 {
		t.Fatalf("Len() = %d, want 200", set.Len())
	}
}

func TestParseAsset(t *testing.T) {
	asset, err := ParseAsset([]byte(cityYAML))
	if err != nil {
		t.Fatalf("ParseAsset() error = %v", err)
	}
	if asset.Name != "city" || asset.Kind() != "obstacles" {
		t.Fatalf("name=%q kind=%q", asset.Name, asset.Kind())
	}
	if len(asset.Obstacles) != 2 {
		t.Fatalf("obstacles = %d, want 2", len(asset.Obstacles))
	}

	box, ok := asset.Obstacles[0].(physics.AABB)
	if !ok {
		t.Fatalf("first obstacle is %T, want AABB", asset.Obstacles[0])
	}
	if box.Min != (mgl64.Vec3{-2, 0, -12}) || box.Max != (mgl64.Vec3{2, 10, -8}) {
		t.Fatalf("box = %+v", box)
	}

	mesh, ok := asset.Obstacles[1].(*physics.Mesh)
	if !ok || mesh.Name != "ramp" || len(mesh.Triangles) != 1 {
		t.Fatalf("second obstacle = %#v", asset.Obstacles[1])
	}
	if mesh.Triangles[0].A != (mgl64.Vec3{-1, 0, -5}) {
		t.Fatalf("offset not applied to mesh: %v", mesh.Triangles[0].A)
	}
}

func TestParseAsset_PassableShapes(t *testing.T) {
	const roadYAML = `boxes:
  - name: Road
    center: [0, -0.05, 0]
    size: [40, 0.1, 40]
    collide: false
  - name: kerb
    center: [5, 0.1, 0]
    size: [0.5, 0.2, 40]
    collide: true
meshes:
  - name: ramp_surface
    collide: false
    triangles:
      - [[0, 0, 0], [1, 0, 0], [1, 1, 1]]
`
	asset, err := ParseAsset([]byte(roadYAML))
	if err != nil {
		t.Fatalf("ParseAsset() error = %v", err)
	}
	if len(asset.Obstacles) != 1 {
		t.Fatalf("obstacles = %d, want only the kerb", len(asset.Obstacles))
	}
	if got := strings.Join(asset.Passable, ","); got != "Road,ramp_surface" {
		t.Fatalf("Passable = %q", got)
	}

	// 可通行的路面不会挡住贴地行驶的角色
	set := NewObstacleSet()
	set.Add(asset.Obstacles...)
	prober := physics.NewProber(set)
	prober.Directions = append(prober.Directions, physics.DirDown)
	if hit, blocked := prober.Detect(mgl64.Vec3{0, 0.5, 0}); blocked {
		t.Fatalf("road should not block: %+v", hit)
	}
}

func TestParseAsset_Actor(t *testing.T) {
	asset, err := ParseAsset([]byte(carYAML))
	if err != nil {
		t.Fatalf("ParseAsset() error = %v", err)
	}
	if asset.Kind() != "actor" || asset.Actor == nil {
		t.Fatalf("kind = %q, want actor", asset.Kind())
	}
	pose := asset.Actor.Pose()
	if pose.Position != (mgl64.Vec3{-2, 0, 10}) || pose.Heading != 0.5 || asset.Actor.Scale != 0.5 {
		t.Fatalf("actor = %+v", asset.Actor)
	}
}

func TestParseAsset_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "boxes: [", "yaml"},
		{"short center", "boxes:\n  - center: [1, 2]\n    size: [1, 1, 1]\n", "box 0 center"},
		{"negative size", "boxes:\n  - center: [0, 0, 0]\n    size: [1, -1, 1]\n", "negative size"},
		{"two vertices", "meshes:\n  - triangles:\n      - [[0,0,0],[1,0,0]]\n", "want 3 vertices"},
		{"actor without position", "actor:\n  heading: 1\n", "actor position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAsset([]byte(tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("ParseAsset() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestDirSource_Resolve(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "city", cityYAML)
	writeAsset(t, dir, "car", carYAML)
	src := DirSource{Dir: dir}
	ctx := context.Background()

	city, err := src.Resolve(ctx, "city")
	if err != nil || len(city.Obstacles) != 2 {
		t.Fatalf("Resolve(city) = %v, %v", city, err)
	}
	car, err := src.Resolve(ctx, "car")
	if err != nil || car.Name != "car" {
		t.Fatalf("Resolve(car) name = %v, %v; want name defaulted to file name", car, err)
	}

	for _, name := range []string{"missing", "../etc/passwd", ""} {
		if _, err := src.Resolve(ctx, name); !errors.Is(err, ErrUnknownAsset) {
			t.Errorf("Resolve(%q) error = %v, want ErrUnknownAsset", name, err)
		}
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := src.Resolve(cancelled, "city"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Resolve on cancelled ctx error = %v", err)
	}
}

func TestLoader_DeliversResultsIncludingFailures(t *testing.T) {
	src := StaticSource{
		"city": {Name: "city", Obstacles: []physics.Shape{physics.BoxAt(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})}},
	}
	loader := NewLoader(src, 4)
	ctx := context.Background()

	if got := loader.Drain(); len(got) != 0 {
		t.Fatalf("Drain() before any load = %v", got)
	}

	loader.Load(ctx, "city")
	loader.Load(ctx, "nope")
	loader.Wait()

	results := loader.Drain()
	if len(results) != 2 {
		t.Fatalf("Drain() returned %d results, want 2", len(results))
	}
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if r := byName["city"]; r.Err != nil || r.Asset == nil {
		t.Fatalf("city result = %+v", r)
	}
	if r := byName["nope"]; !errors.Is(r.Err, ErrUnknownAsset) || r.Asset != nil {
		t.Fatalf("nope result = %+v", r)
	}
	if got := loader.Drain(); len(got) != 0 {
		t.Fatalf("second Drain() = %v, want empty", got)
	}
}

func TestShippedAssets(t *testing.T) {
	src := DirSource{Dir: filepath.Join("..", "..", "assets")}
	ctx := context.Background()

	city, err := src.Resolve(ctx, "low_poly_city")
	if err != nil {
		t.Fatalf("Resolve(low_poly_city) error = %v", err)
	}
	if city.Actor != nil || len(city.Obstacles) != 13 {
		t.Fatalf("city: actor=%v obstacles=%d, want no actor and 13 obstacles", city.Actor, len(city.Obstacles))
	}
	if len(city.Passable) != 1 || city.Passable[0] != "Road" {
		t.Fatalf("city passable = %v, want [Road]", city.Passable)
	}

	car, err := src.Resolve(ctx, "trabant")
	if err != nil || car.Actor == nil {
		t.Fatalf("Resolve(trabant) = %v, %v", car, err)
	}
	if car.Actor.Position != (mgl64.Vec3{-2, 0, 10}) || car.Actor.Scale != 0.5 {
		t.Fatalf("actor = %+v", car.Actor)
	}

	// 出生点周围不能有障碍物，否则第一帧就无法移动
	set := NewObstacleSet()
	set.Add(city.Obstacles...)
	if hit, blocked := physics.NewProber(set).Detect(car.Actor.Position); blocked {
		t.Fatalf("spawn is blocked: %+v", hit)
	}
}
