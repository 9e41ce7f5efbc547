package manager

import (
	"sync"

	"cliparr/pkg/logger"
)

// Resource is an infrastructure handle opened once at startup.
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin creates a resource for registration.
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

type openedResource struct {
	name     string
	resource Resource
}

var (
	mu        sync.Mutex
	plugins   []ResourcePlugin
	opened    []openedResource
	initOnce  sync.Once
	closeOnce sync.Once
)

// RegisterResourcePlugin 注册资源插件，需在 MustInitResources 之前调用
func RegisterResourcePlugin(p ResourcePlugin) {
	if p == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	plugins = append(plugins, p)
}

// MustInitResources opens every registered resource in registration order.
func MustInitResources() {
	initOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range plugins {
			r := p.MustCreateResource()
			if r == nil {
				continue
			}
			r.MustOpen()
			opened = append(opened, openedResource{name: p.Name(), resource: r})
			logger.Infof("resource opened name=%s", p.Name())
		}
	})
}

// CloseResources closes opened resources in reverse order.
func CloseResources() {
	closeOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		for i := len(opened) - 1; i >= 0; i-- {
			opened[i].resource.Close()
			logger.Infof("resource closed name=%s", opened[i].name)
		}
		opened = nil
	})
}
