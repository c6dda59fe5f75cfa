package agents

import "context"

// TransformAgent — pass-through агент для перекладки данных между шагами.
//
// Возвращает копию входов. Если входа "output" нет, основным результатом
// становится сама карта входов.
type TransformAgent struct{}

// Run возвращает входы как результат.
func (a *TransformAgent) Run(_ context.Context, inputs map[string]any) (map[string]any, error) {
	outputs := make(map[string]any, len(inputs)+1)
	for k, v := range inputs {
		outputs[k] = v
	}
	if _, ok := outputs["output"]; !ok {
		copied := make(map[string]any, len(inputs))
		for k, v := range inputs {
			copied[k] = v
		}
		outputs["output"] = copied
	}
	return outputs, nil
}
