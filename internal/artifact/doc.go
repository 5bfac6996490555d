// Package artifact defines the JSON model files produced from style sheets.
//
// # Overview
//
// Every source "<name>.rsml" under the input root compiles to one artifact
// "<name>.model.json" at the mirrored location under the output root. The
// artifact is a Rojo model describing a StyleSheet instance:
//
//	{
//	    "className": "StyleSheet",
//	    "id": "ui/panel.rsml",
//	    "attributes": {},
//	    "children": [
//	        {
//	            "name": ".Button",
//	            "className": "StyleRule",
//	            "attributes": {},
//	            "properties": {
//	                "Priority": 10,
//	                "PropertiesSerialize": {
//	                    "BackgroundTransparency": 0.5
//	                },
//	                "Selector": ".Button"
//	            },
//	            "children": []
//	        },
//	        {
//	            "className": "StyleDerive",
//	            "name": "base",
//	            "attributes": {
//	                "Rojo_Target_StyleSheet": "ui/base.rsml"
//	            }
//	        }
//	    ]
//	}
//
// # Self identification
//
// The id field is the source path relative to the input root. Cleanup reads
// nothing but the id (ReadID) to decide whether an artifact is stale: an id
// that names a ".rsml" file which no longer exists under the input root marks
// the artifact for deletion. Artifacts whose id does not end in ".rsml" are
// never touched.
//
// # Usage
//
//	res, err := compiler.Compile(src, path, host)
//	sheet := artifact.Build(res, path, inputRoot)
//	data, err := artifact.Encode(sheet)
//	out, _ := artifact.OutputPath(path, inputRoot, outputRoot)
package artifact
