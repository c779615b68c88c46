package main

import (
	"fmt"
	"os"
	"time"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/lighting"
	"github.com/Faultbox/meshview/internal/engine/picking"
	"github.com/Faultbox/meshview/internal/engine/shader"
	"github.com/Faultbox/meshview/internal/viewer"
)

func (app *App) handleShortcuts() {
	ctrl := func(k imgui.Key) bool {
		return imgui.IsKeyChordPressed(imgui.KeyChord(imgui.ModCtrl) | imgui.KeyChord(k))
	}
	switch {
	case ctrl(imgui.KeyO):
		app.openFileDialog()
	case ctrl(imgui.KeyR), imgui.IsKeyChordPressed(imgui.KeyChord(imgui.KeyF5)):
		app.Reload()
	case imgui.IsKeyChordPressed(imgui.KeyChord(imgui.KeyF12)):
		app.saveScreenshot()
	case imgui.IsKeyChordPressed(imgui.KeyChord(imgui.KeyF1)):
		app.showOptions = !app.showOptions
	}
}

func (app *App) renderMenuBar() {
	if !imgui.BeginMainMenuBar() {
		return
	}
	if imgui.BeginMenu("File") {
		if imgui.MenuItemBoolV("Open...", "Ctrl+O", false, true) {
			app.openFileDialog()
		}
		if imgui.MenuItemBoolV("Reload", "Ctrl+R", false, app.session.Asset() != nil) {
			app.Reload()
		}
		if imgui.MenuItemBoolV("Save Screenshot", "F12", false, true) {
			app.saveScreenshot()
		}
		if imgui.MenuItemBool("Save Settings") {
			app.saveSettings()
		}
		imgui.Separator()
		if imgui.MenuItemBool("Quit") {
			app.Close()
			os.Exit(0)
		}
		imgui.EndMenu()
	}
	if imgui.BeginMenu("Shader") {
		for _, name := range shader.Names() {
			if imgui.MenuItemBoolV(name, "", app.renderer.Shader == name, true) {
				app.renderer.Shader = name
			}
		}
		imgui.EndMenu()
	}
	if imgui.BeginMenu("Camera") {
		if imgui.MenuItemBoolV("Fly", "", app.rig.Mode == viewer.ModeFly, true) {
			app.rig.Mode = viewer.ModeFly
		}
		if imgui.MenuItemBoolV("Orbit", "", app.rig.Mode == viewer.ModeOrbit, true) {
			app.rig.Mode = viewer.ModeOrbit
		}
		imgui.Separator()
		if imgui.MenuItemBool("Reset") {
			app.rig.Reset()
		}
		imgui.EndMenu()
	}
	if imgui.BeginMenu("View") {
		if imgui.MenuItemBoolV("Options", "F1", app.showOptions, true) {
			app.showOptions = !app.showOptions
		}
		imgui.EndMenu()
	}
	imgui.EndMainMenuBar()
}

// renderViewport draws the scene into the framebuffer, shows it as an
// image and feeds camera input while the image is hovered.
func (app *App) renderViewport(dt float32) {
	avail := imgui.ContentRegionAvail()
	w, h := int(avail.X), int(avail.Y)
	if w < 1 || h < 1 {
		return
	}
	app.rig.Lens.Resize(w, h)
	app.rig.Update()

	tex := app.renderer.Render(app.session.Asset(), app.rig.View(), app.rig.Lens)
	origin := imgui.CursorScreenPos()
	texRef := imgui.NewTextureRefTextureID(imgui.TextureID(tex))
	imgui.ImageWithBgV(
		*texRef,
		avail,
		imgui.NewVec2(0, 1), // GL textures are bottom-up
		imgui.NewVec2(1, 0),
		imgui.NewVec4(0, 0, 0, 0),
		imgui.NewVec4(1, 1, 1, 1),
	)

	mousePos := imgui.MousePos()
	if imgui.IsItemHovered() {
		in := viewer.Input{
			DX:       mousePos.X - app.lastMousePos.X,
			DY:       mousePos.Y - app.lastMousePos.Y,
			Dragging: imgui.IsMouseDragging(imgui.MouseButtonLeft),
			Wheel:    imgui.CurrentIO().MouseWheel(),
			DT:       dt,
		}
		if !imgui.IsAnyItemActive() {
			in.Move = heldMovement()
		}
		app.rig.Apply(in)

		if imgui.IsMouseClickedBool(imgui.MouseButtonRight) {
			app.pick(mousePos.X-origin.X, mousePos.Y-origin.Y)
		}
	}
	app.lastMousePos = mousePos
}

// pick selects the mesh under viewport pixel (x, y), or clears the
// selection when nothing is hit.
func (app *App) pick(x, y float32) {
	lens := app.rig.Lens
	ray := picking.ScreenToRay(x, y, float32(lens.Width), float32(lens.Height), app.rig.View().ViewProjection())
	i, _, ok := picking.PickMesh(app.session.Asset(), ray)
	if !ok {
		app.renderer.Selected = -1
		return
	}
	app.renderer.Selected = i
	app.notify("Selected " + app.session.Asset().Meshes[i].Name)
}

// heldMovement reads WASD, Space, Ctrl and Shift from SDL's key state.
func heldMovement() camera.Movement {
	keys := sdl.GetKeyboardState()
	down := func(sc sdl.Scancode) bool { return keys[sc] != 0 }
	return camera.Movement{
		Forward: down(sdl.SCANCODE_W),
		Back:    down(sdl.SCANCODE_S),
		Left:    down(sdl.SCANCODE_A),
		Right:   down(sdl.SCANCODE_D),
		Up:      down(sdl.SCANCODE_SPACE),
		Down:    down(sdl.SCANCODE_LCTRL) || down(sdl.SCANCODE_RCTRL),
		Fast:    down(sdl.SCANCODE_LSHIFT) || down(sdl.SCANCODE_RSHIFT),
	}
}

func (app *App) renderOptions() {
	r := app.renderer

	if imgui.TreeNodeExStrV("Loading", imgui.TreeNodeFlagsDefaultOpen) {
		if imgui.Checkbox("Flip texture V", &app.session.Options.FlipTextureV) {
			app.Reload()
		}
		if imgui.Checkbox("Normalize to unit cube", &app.session.Options.Normalize) {
			app.Reload()
		}
		imgui.TreePop()
	}

	if imgui.TreeNodeExStrV("Render", imgui.TreeNodeFlagsDefaultOpen) {
		imgui.ColorEdit3("Background", (*[3]float32)(&r.ClearColor))
		imgui.Checkbox("Cull faces", &r.CullFaces)
		imgui.Checkbox("Show bounds", &r.ShowBounds)
		imgui.TreePop()
	}

	if imgui.TreeNodeExStrV("Light", imgui.TreeNodeFlagsDefaultOpen) {
		imgui.Checkbox("Lighting", &r.Light.Enabled)
		imgui.SliderFloatV("Shininess", &r.Light.Shininess, 1, 128, "%.0f", imgui.SliderFlagsNone)
		changed := imgui.SliderFloatV("Azimuth", &app.lightAngles[0], -180, 180, "%.0f deg", imgui.SliderFlagsNone)
		if imgui.SliderFloatV("Elevation", &app.lightAngles[1], -89, 89, "%.0f deg", imgui.SliderFlagsNone) {
			changed = true
		}
		if changed {
			r.Light.Direction = lighting.SunDirection(app.lightAngles[0], app.lightAngles[1])
		}
		imgui.ColorEdit3("Color", (*[3]float32)(&r.Light.Color))
		imgui.TreePop()
	}

	if a := app.session.Asset(); a != nil && imgui.TreeNodeExStrV("Transform", imgui.TreeNodeFlagsDefaultOpen) {
		imgui.DragFloat3("Translation", (*[3]float32)(&a.Translation))
		imgui.DragFloat3("Rotation axis", (*[3]float32)(&a.RotationAxis))
		if imgui.SliderFloatV("Angle", &app.rotationDeg, -180, 180, "%.0f deg", imgui.SliderFlagsNone) {
			a.RotationAngle = mgl32.DegToRad(app.rotationDeg)
		}
		imgui.DragFloat3("Scale", (*[3]float32)(&a.Scale))
		if imgui.Button("Reset transform") {
			app.session.ResetTransform()
			app.syncUserTransform()
		}
		imgui.TreePop()
	}

	if imgui.TreeNodeExStrV("Camera", imgui.TreeNodeFlagsDefaultOpen) {
		imgui.Text(fmt.Sprintf("Mode: %s", app.rig.Mode))
		imgui.Text(fmt.Sprintf("FOV: %.0f", app.rig.Lens.FOV))
		pos := app.rig.View().Position()
		imgui.Text(fmt.Sprintf("Position: (%.2f, %.2f, %.2f)", pos[0], pos[1], pos[2]))
		if app.rig.Mode == viewer.ModeFly {
			imgui.TextDisabled("Drag to look, WASD to move, wheel to zoom")
		} else {
			imgui.TextDisabled("Drag to orbit, wheel to zoom")
		}
		imgui.TreePop()
	}

	imgui.Separator()
	imgui.Text(fmt.Sprintf("FPS: %.0f", imgui.CurrentIO().Framerate()))
	if a := app.session.Asset(); a != nil {
		st := a.Stats()
		imgui.Text(fmt.Sprintf("Format: %s", a.Format))
		imgui.Text(fmt.Sprintf("Meshes: %d", st.Meshes))
		imgui.Text(fmt.Sprintf("Vertices: %d", st.Vertices))
		imgui.Text(fmt.Sprintf("Triangles: %d", st.Triangles))
		imgui.Text(fmt.Sprintf("Textures: %d", st.Textures))
		if st.FailedTextures > 0 {
			imgui.TextColored(imgui.NewVec4(1, 0.6, 0.2, 1), fmt.Sprintf("Missing textures: %d", st.FailedTextures))
		}
		if i := app.renderer.Selected; i >= 0 && i < len(a.Meshes) {
			m := a.Meshes[i]
			imgui.Separator()
			imgui.Text(fmt.Sprintf("Selected: %s (#%d)", m.Name, i))
			imgui.Text(fmt.Sprintf("  %d vertices, %d triangles, %d textures", len(m.Vertices), m.TriangleCount(), len(m.Textures)))
			if imgui.SmallButton("Clear selection") {
				app.renderer.Selected = -1
			}
		} else {
			imgui.TextDisabled("Right-click a mesh to select it")
		}
	}
	if app.lastError != "" {
		imgui.Separator()
		imgui.TextColored(imgui.NewVec4(1, 0.3, 0.3, 1), "Last error:")
		imgui.TextWrapped(app.lastError)
	}
}

// syncUserTransform copies the asset's rotation into the angle slider.
func (app *App) syncUserTransform() {
	if a := app.session.Asset(); a != nil {
		app.rotationDeg = mgl32.RadToDeg(a.RotationAngle)
	}
}

func (app *App) renderStatusBar() {
	path := app.session.Path()
	if path == "" {
		path = "No model loaded (File > Open)"
	}
	imgui.Text(path)
	if app.status != "" && time.Since(app.statusTime) < 3*time.Second {
		imgui.SameLine()
		imgui.TextDisabled("| " + app.status)
	}
}
