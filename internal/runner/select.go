package runner

import (
	"github.com/YoshitsuguKoike/buildhelper/internal/domain"
)

// ConfigSource exposes envs[env].runner.
type ConfigSource interface {
	RunnerConfig(env string) map[string]any
}

// Select picks the runner for env. The runner type comes from the
// config's "type" key and defaults to the environment name, so an
// environment called local, docker or k8s needs no explicit type.
func Select(env string, src ConfigSource, executor Executor) (Runner, error) {
	var cfg map[string]any
	if src != nil {
		cfg = src.RunnerConfig(env)
	}

	runnerType := env
	if t, ok := cfg["type"]; ok {
		s, isString := t.(string)
		if !isString {
			return nil, optionError("type", "a string")
		}
		runnerType = s
	}

	switch runnerType {
	case "local":
		defaults, err := optionsFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewLocal(env, defaults, executor), nil

	case "docker":
		container, err := stringOption(cfg, "container")
		if err != nil {
			return nil, err
		}
		bin, err := stringOption(cfg, "docker_bin")
		if err != nil {
			return nil, err
		}
		defaults, err := optionsFromConfig(cfg, "container", "docker_bin")
		if err != nil {
			return nil, err
		}
		return NewDocker(env, container, bin, defaults, executor), nil

	case "k8s", "kubernetes":
		pod, err := stringOption(cfg, "pod")
		if err != nil {
			return nil, err
		}
		namespace, err := stringOption(cfg, "namespace")
		if err != nil {
			return nil, err
		}
		bin, err := stringOption(cfg, "kubectl_bin")
		if err != nil {
			return nil, err
		}
		defaults, err := optionsFromConfig(cfg, "pod", "namespace", "kubectl_bin")
		if err != nil {
			return nil, err
		}
		return NewK8s(env, pod, namespace, bin, defaults, executor), nil
	}

	if len(cfg) > 0 {
		return nil, domain.NewConfigError("envs."+env+".runner", domain.ErrUnknownRunnerType,
			"unknown runner type '%s' for environment '%s'", runnerType, env)
	}
	return NewLocal(env, Options{}, executor), nil
}

func stringOption(cfg map[string]any, key string) (string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", optionError(key, "a string")
	}
	return s, nil
}
