package codec_test

import (
	"bytes"
	"fmt"

	"github.com/matzehuels/mdcanvas/pkg/codec"
	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/metadata"
)

func ExampleWrite() {
	s := diagram.NewStore()
	_ = s.InsertNode(diagram.Node{
		ID:       "idea",
		Geometry: diagram.Geometry{Width: 120, Height: 40},
		Data:     metadata.DataBag{Text: metadata.Ptr("Plan"), Collapsed: metadata.Ptr(true)},
	})

	var buf bytes.Buffer
	if err := codec.Write(s, &buf); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Print(buf.String())
	// Output:
	// {
	//   "version": 1,
	//   "nodes": [
	//     {
	//       "id": "idea",
	//       "shape": "plain",
	//       "geometry": {
	//         "x": 0,
	//         "y": 0,
	//         "width": 120,
	//         "height": 40
	//       },
	//       "data": {
	//         "collapsed": true,
	//         "text": "Plan"
	//       }
	//     }
	//   ],
	//   "edges": []
	// }
}

func ExampleDecode() {
	doc := `{
		"version": 1,
		"nodes": [
			{"id": "a", "shape": "plain", "geometry": {"x": 0, "y": 0, "width": 10, "height": 10}},
			{"id": "b", "shape": "rich"}
		],
		"edges": []
	}`

	res, err := codec.Decode([]byte(doc))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Nodes:", res.Store.NodeCount())
	for _, le := range res.Errors {
		fmt.Println("Skipped:", le.Kind, le.ID)
	}
	// Output:
	// Nodes: 1
	// Skipped: node b
}
