package blade

import "github.com/blade-go/blade/pkg/ioc"

// Plugin is a long-lived component with a teardown hook. Destroy is called
// once, in registration order, by Blade.Destroy.
type Plugin interface {
	Destroy()
}

// RegisterPlugin registers p in the container and in the plugin list and
// returns its container key. Registering the same key again is a no-op.
func (b *Blade) RegisterPlugin(p Plugin, opts ...ioc.InstanceOption) (string, error) {
	key, err := b.container.RegisterInstance(p, opts...)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pluginKeys[key]; ok {
		return key, nil
	}
	b.pluginKeys[key] = p
	b.plugins = append(b.plugins, p)
	b.logger.Debug("plugin registered", "key", key)
	return key, nil
}

// Plugin returns the plugin registered under key.
func (b *Blade) Plugin(key string) (Plugin, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pluginKeys[key]
	return p, ok
}

// Plugins returns the plugins in registration order.
func (b *Blade) Plugins() []Plugin {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Plugin(nil), b.plugins...)
}

// PluginOf returns the first plugin of type T.
func PluginOf[T Plugin](b *Blade) (T, bool) {
	for _, p := range b.Plugins() {
		if v, ok := p.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
