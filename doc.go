/*
Package render is a thin resource layer over an OpenGL 4.3 style device:
typed buffers, shaders, linked programs with a uniform cache, compute
programs, vertex layouts and textures.

# Overview

Every resource wraps one device handle and releases it with Delete, which is
safe to call more than once. Nothing here draws; callers issue draw calls on
the device after binding a Program and a VertexLayout.

The package never talks to a graphics API directly. All device work goes
through the Device interface, implemented for real hardware by
backend/opengl and in memory by rendertest.

# Quick Start

	dev := opengl.NewDevice()

	vbo := render.NewVertexBuffer(dev, vertices, render.StaticDraw)
	ibo := render.NewBufferWithData(dev, render.IndexBuffer, indices, render.StaticDraw)
	layout, err := render.NewVertexLayout(dev, vbo, func(a *render.AttributeBuilder) {
	    a.Vector(render.Float, 2) // position
	    a.Vector(render.Float, 2) // uv
	}, render.WithIndexBuffer(ibo))

	vs, err := render.NewVertexShader(dev, vertSrc)
	fs, err := render.NewFragmentShader(dev, fragSrc)
	prog, err := render.NewProgram(dev, vs, fs)
	vs.Delete()
	fs.Delete()

	prog.SetVec2("windowSize", mgl32.Vec2{1280, 720})
	layout.Bind()
	// draw

# Binding State

Each operation binds what it needs and leaves the targets it used unbound.
Buffer transfers go through the copy-read and copy-write targets, so
uploading or mapping a buffer never disturbs the bound vertex layout, its
index buffer or any storage binding.

The exceptions are the operations whose purpose is to change state:
Program.Use (and every uniform setter, which calls it), VertexLayout.Bind,
Buffer.BindBase, Texture.Bind and Texture.BindImage.

# Compute

ComputeProgram.Dispatch issues a full memory barrier after the dispatch, so
a following MapRead, CopyTo or draw observes everything the shader wrote.

	buf := render.NewBufferWithCapacity[int32](dev, render.StorageBuffer, 4, render.DynamicRead)
	buf.BindBase(0)
	prog.Dispatch(4, 1, 1)
	err := buf.MapRead(func(v []int32) error {
	    fmt.Println(v)
	    return nil
	})

# Errors

Compilation and linking return *CompileError and *LinkError carrying the
driver's info log verbatim. Out-of-range copies return *RangeError, invalid
vertex layouts *ConfigError, and mapping failures *DeviceError. Using a
deleted resource is a programming error and panics.

# Threading

A Device and the resources created from it belong to the goroutine that
owns the GL context, which must be locked to its OS thread.
*/
package render
